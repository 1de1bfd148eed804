package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cshekharsharma/doctree/substrate"
	"github.com/cshekharsharma/doctree/transport/wsadaptor"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var connectArgs struct {
	timeout time.Duration
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Join --room on --server over WebSocket and keep the document in sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		server := viper.GetString("server")
		if server == "" {
			return fmt.Errorf("doctreectl: --server is required")
		}
		room := viper.GetString("room")
		if room == "" {
			room = uuid.NewString()
		}

		d, err := loadDocument(viper.GetString("file"), viper.GetUint64("peer"))
		if err != nil {
			return err
		}
		defer d.Close()

		log, err := substrate.NewSugaredZapLogger()
		if err != nil {
			return fmt.Errorf("doctreectl: init logger: %w", err)
		}

		roomURL, err := withRoomQuery(server, room)
		if err != nil {
			return fmt.Errorf("doctreectl: invalid --server %q: %w", server, err)
		}
		adaptor := wsadaptor.New(roomURL, log)
		client := d.AttachSync(adaptor, log)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if connectArgs.timeout > 0 {
			var timeoutCancel context.CancelFunc
			ctx, timeoutCancel = context.WithTimeout(ctx, connectArgs.timeout)
			defer timeoutCancel()
		}

		if err := client.Connect(ctx, room); err != nil {
			return fmt.Errorf("doctreectl: connect: %w", err)
		}
		fmt.Printf("connected to room %s (status=%s)\n", room, client.State().Status)

		if err := client.Broadcast(substrate.Frontier{}); err != nil {
			log.Warnw("initial broadcast failed", "error", err)
		}

		<-ctx.Done()
		client.Disconnect()
		return saveDocument(viper.GetString("file"), d)
	},
}

func init() {
	connectCmd.Flags().DurationVar(&connectArgs.timeout, "duration", 0, "disconnect automatically after this long (0 = until interrupted)")
	rootCmd.AddCommand(connectCmd)
}

// withRoomQuery sets server's "room" query parameter to room, since
// sync.Client.Connect passes roomID only to its own state bookkeeping
// and never down to the Adaptor; wsadaptor reads the room it should
// join from the dialed URL instead.
func withRoomQuery(server, room string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("room", room)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
