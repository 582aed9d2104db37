// Package pathresolve expands configured search paths into concrete, existing
// directories for one target date.
//
// Three path shapes are supported: literal directories, paths carrying
// {date:<layout>} tokens, and date-folder bases whose immediate children are
// matched against a search.DateFolderFormat. Missing or unreadable locations
// never fail resolution; they simply contribute no directories.
package pathresolve
