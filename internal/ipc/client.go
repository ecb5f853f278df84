package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the agent.
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
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the agent status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Anchorage.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the agent to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Anchorage.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cycle triggers an immediate out-of-band cycle.
func (c *Client) Cycle() (*CycleResponse, error) {
	var resp CycleResponse
	if err := c.client.Call("Anchorage.Cycle", CycleRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueAdd appends one entry to the command queue.
func (c *Client) QueueAdd(cid, secret string) (*QueueAddResponse, error) {
	var resp QueueAddResponse
	req := QueueAddRequest{CID: cid, Secret: secret}
	if err := c.client.Call("Anchorage.QueueAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TransferList returns recent transfers, newest first.
func (c *Client) TransferList(limit int) (*TransferListResponse, error) {
	var resp TransferListResponse
	req := TransferListRequest{Limit: limit}
	if err := c.client.Call("Anchorage.TransferList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PinList returns the recursively pinned CIDs.
func (c *Client) PinList() (*PinListResponse, error) {
	var resp PinListResponse
	if err := c.client.Call("Anchorage.PinList", PinListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the agent.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Anchorage.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
