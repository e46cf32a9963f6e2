package listener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-log"
)

// WsListener accepts websocket clients and hands each connection to the
// ConnectionManager. It is a service worker: Start blocks until the
// context is cancelled, then drains open connections.
type WsListener struct {
	port uint16
	path string
	cm   *ConnectionManager
}

func NewWsListener(port uint16, path string, cm *ConnectionManager) *WsListener {
	return &WsListener{
		port: port,
		path: path,
		cm:   cm,
	}
}

func (l *WsListener) Start(ctx context.Context) error {
	// Connections share one context so shutdown cancels them together.
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	var wg sync.WaitGroup
	logger := log.GetLogger(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc(l.path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Errorf("upgrading connection: %s", err)
			return
		}

		wg.Add(1)
		defer wg.Done()
		defer func() {
			if err := conn.Close(); err != nil {
				logger.Errorf("closing websocket connection: %s", err)
			}
		}()

		l.cm.AcceptConnection(log.SetLogger(connCtx, logger), conn)
	})

	svr := &http.Server{
		Addr:    fmt.Sprintf(":%d", l.port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		svr.Close()
		cancelConns()
	}()

	logger.Infof("websocket listener on :%d%s", l.port, l.path)

	err := svr.ListenAndServe()
	wg.Wait()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return fmt.Errorf("port %d is already in use (another server running?)", l.port)
	}
	return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
}
