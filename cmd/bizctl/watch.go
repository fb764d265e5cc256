package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type watchOptions struct {
	collections []string
	raw         bool
	heartbeats  bool
}

func newWatchCmd(g *globals) *cobra.Command {
	o := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the snapshot stream of the token's tenant",
		Long: `Open /api/v1/stream and print one line per snapshot: the collection,
how many records it holds and their ids. Telemetry recomputed from those
snapshots is printed as it arrives. The command ends when the server sends a
logout event, closes the stream, or on Ctrl-C.`,
		Example: `  bizctl watch
  bizctl watch --collection invoices --collection receipts
  bizctl watch --raw | jq .`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.requireToken(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return o.run(ctx, g, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&o.collections, "collection", nil, "Only print these collections (repeatable)")
	flags.BoolVar(&o.raw, "raw", false, "Print each event's JSON payload instead of a summary")
	flags.BoolVar(&o.heartbeats, "heartbeats", false, "Also print heartbeat events")

	return cmd
}

func (o *watchOptions) run(ctx context.Context, g *globals, out io.Writer) error {
	// the token goes in the query because that is what browsers' EventSource
	// can send; the header is set as well for proxies that strip queries
	req, err := g.newRequest(http.MethodGet, "/api/v1/stream?access_token="+url.QueryEscape(g.token))
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	g.log.Info("Stream opened", zap.String("server", g.server))

	errLoggedOut := errors.New("logged out")
	err = readEvents(resp.Body, func(ev sseEvent) error {
		if !o.wants(ev) {
			return nil
		}
		if o.raw {
			fmt.Fprintln(out, ev.Data)
		} else {
			fmt.Fprintln(out, summarize(ev))
		}
		if ev.Name == "logout" {
			return errLoggedOut
		}
		return nil
	})
	switch {
	case errors.Is(err, errLoggedOut):
		g.log.Info("Session logged out, stream closed")
		return nil
	case ctx.Err() != nil:
		return nil
	case err != nil:
		return fmt.Errorf("stream failed: %w", err)
	}
	g.log.Info("Server closed the stream")
	return nil
}

func (o *watchOptions) wants(ev sseEvent) bool {
	switch ev.Name {
	case "heartbeat":
		return o.heartbeats
	case "snapshot":
		if len(o.collections) == 0 {
			return true
		}
		collection := gjson.Get(ev.Data, "collection").String()
		for _, c := range o.collections {
			if strings.EqualFold(c, collection) {
				return true
			}
		}
		return false
	}
	return true
}

// summarize renders an event as a single human readable line
func summarize(ev sseEvent) string {
	data := gjson.Parse(ev.Data)
	switch ev.Name {
	case "connected":
		return fmt.Sprintf("connected  tenant=%s stream=%s",
			data.Get("tenant_id").String(), data.Get("stream_id").String())
	case "snapshot":
		var ids []string
		for _, id := range data.Get("snapshot.#.id").Array() {
			ids = append(ids, id.String())
		}
		line := fmt.Sprintf("%-16s %4d records", data.Get("collection").String(), len(ids))
		if len(ids) > 0 {
			line += "  " + strings.Join(ids, " ")
		}
		return line
	case "telemetry":
		return fmt.Sprintf("telemetry  earnings=%s pending=%s invoices=%d overdue=%d awaiting-approval=%d",
			formatMoney(data.Get("totalEarnings").String()),
			formatMoney(data.Get("pendingRevenue").String()),
			data.Get("invoiceCount").Int(),
			data.Get("overdueCount").Int(),
			data.Get("pendingApprovalCount").Int())
	case "heartbeat":
		return "heartbeat  " + time.Unix(data.Get("timestamp").Int(), 0).UTC().Format(time.RFC3339)
	case "logout":
		return "logout"
	}
	return ev.Name + "  " + ev.Data
}
