package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"anchorage/internal/history"
	"anchorage/internal/logging"
	"anchorage/internal/loop"
)

// Agent is the control surface the server exposes. The daemon implements it.
type Agent interface {
	Status(ctx context.Context) StatusResponse
	Stop()
	TriggerCycle()
	QueueAdd(cid, secret string) error
	Transfers(ctx context.Context, limit int) ([]history.Transfer, error)
	Pins(ctx context.Context) ([]string, error)
	TestNotification(ctx context.Context) (bool, string, error)
}

// Server exposes agent control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, agent Agent, logger *slog.Logger) (*Server, error) {
	if agent == nil {
		return nil, errors.New("ipc server requires an agent")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{agent: agent, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Anchorage", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the agent if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun anchorage daemon stop"))
	}
}

type service struct {
	agent  Agent
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.agent.Status(s.ctx)
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("agent stop requested")
	s.agent.Stop()
	resp.Stopped = true
	s.logger.Info("agent stopped via IPC",
		logging.String(logging.FieldEventType, "agent_stop"))
	return nil
}

func (s *service) Cycle(_ CycleRequest, resp *CycleResponse) error {
	s.logger.Debug("immediate cycle requested")
	s.agent.TriggerCycle()
	resp.Triggered = true
	return nil
}

func (s *service) QueueAdd(req QueueAddRequest, resp *QueueAddResponse) error {
	if err := s.agent.QueueAdd(req.CID, req.Secret); err != nil {
		return err
	}
	resp.Queued = true
	s.logger.Info("queue entry appended via IPC",
		logging.String(logging.FieldCID, req.CID),
		logging.String(logging.FieldEventType, "queue_add"))
	return nil
}

func (s *service) TransferList(req TransferListRequest, resp *TransferListResponse) error {
	transfers, err := s.agent.Transfers(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Transfers = make([]Transfer, 0, len(transfers))
	for _, t := range transfers {
		resp.Transfers = append(resp.Transfers, Transfer{
			ID:        t.ID,
			CID:       t.CID,
			Name:      t.Name,
			Direction: string(t.Direction),
			LocalPath: t.LocalPath,
			Secret:    t.Secret,
			CreatedAt: t.CreatedAt,
		})
	}
	return nil
}

func (s *service) PinList(_ PinListRequest, resp *PinListResponse) error {
	pins, err := s.agent.Pins(s.ctx)
	if err != nil {
		return err
	}
	resp.Pins = pins
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.agent.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

// StatusFromLoop fills the loop-derived fields of a status response.
func StatusFromLoop(status loop.Status) StatusResponse {
	return StatusResponse{
		Running:       true,
		Phase:         string(status.Phase),
		Cycle:         status.Cycle,
		DaemonStarted: status.Daemon.Started,
		PeerID:        status.Daemon.PeerID,
		Multiaddress:  status.Daemon.Multiaddress,
		AgentVersion:  status.Daemon.AgentVersion,
	}
}
