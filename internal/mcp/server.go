package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/roomservice/internal/service"
)

const (
	// ServerName is the MCP server name
	ServerName = "roomservice"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes the order service as MCP tools
type Server struct {
	mcp    *server.MCPServer
	svc    *service.Service
	logger *slog.Logger
}

// NewServer creates a new MCP server instance backed by svc
func NewServer(svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		svc:    svc,
		logger: logger,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdin/stdout until the client disconnects
// or ctx is cancelled
func (s *Server) Serve(ctx context.Context) error {
	return s.Listen(ctx, os.Stdin, os.Stdout)
}

// Listen runs the MCP server over in and out. Cancellation and a closed
// input both end it without error.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server started", "action", "mcp_start", "version", ServerVersion)
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		err = nil
	}
	s.logger.Info("mcp server stopped", "action", "mcp_stop")
	return err
}

func (s *Server) registerTools() {
	// Menu
	s.mcp.AddTool(listMenuTool(), s.handleListMenu)

	// Orders
	s.mcp.AddTool(createOrderTool(), s.handleCreateOrder)
	s.mcp.AddTool(getOrderTool(), s.handleGetOrder)
	s.mcp.AddTool(listOrdersTool(), s.handleListOrders)
	s.mcp.AddTool(addItemsTool(), s.handleAddItems)
	s.mcp.AddTool(updateItemQuantityTool(), s.handleUpdateItemQuantity)
	s.mcp.AddTool(removeItemTool(), s.handleRemoveItem)
	s.mcp.AddTool(updateOrderTool(), s.handleUpdateOrder)

	// Kitchen, billing and export
	s.mcp.AddTool(notifyKitchenTool(), s.handleNotifyKitchen)
	s.mcp.AddTool(renderBillTool(), s.handleRenderBill)
	s.mcp.AddTool(exportOrdersTool(), s.handleExportOrders)
}
