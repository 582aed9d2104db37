package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Req, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start asks the daemon to arm its triggers.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartRequest, StartResponse](c, "Start", StartRequest{})
}

// Stop asks the daemon to disarm its triggers.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopRequest, StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// Trigger raises the manual signal and returns immediately.
func (c *Client) Trigger() (*TriggerResponse, error) {
	return call[TriggerRequest, TriggerResponse](c, "Trigger", TriggerRequest{})
}

// Execute runs a manual attempt and waits for its outcome.
func (c *Client) Execute() (*OutcomeResponse, error) {
	return call[ExecuteRequest, OutcomeResponse](c, "Execute", ExecuteRequest{})
}

// ProcessNow runs an immediate attempt and waits for its outcome.
func (c *Client) ProcessNow() (*OutcomeResponse, error) {
	return call[ProcessNowRequest, OutcomeResponse](c, "ProcessNow", ProcessNowRequest{})
}

// Search discovers files through the daemon's configuration.
func (c *Client) Search(paths []string) (*SearchResponse, error) {
	return call[SearchRequest, SearchResponse](c, "Search", SearchRequest{Paths: paths})
}

// Stats retrieves today's statistics.
func (c *Client) Stats() (*StatsResponse, error) {
	return call[StatsRequest, StatsResponse](c, "Stats", StatsRequest{})
}

// History retrieves journal entries, newest first.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	return call[HistoryRequest, HistoryResponse](c, "History", HistoryRequest{Limit: limit})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationRequest, TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
