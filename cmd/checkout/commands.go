package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"paylink-checkout/internal/config"
	"paylink-checkout/internal/envelope"
	"paylink-checkout/internal/payment"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [order.json]",
		Short: "Start a checkout for an order and follow it to settlement",
		Long: `Start a checkout for the order described in a JSON file and drive it
like the payment page would: choose a method, wait for the gateway to
settle, cancel to pick another method.

While waiting for settlement the following commands are read from stdin:
  status   poll the gateway once
  cancel   cancel the pending order and return to method selection
  info     show the payment instructions again
  quit     leave the checkout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := readOrder(args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, w *wiring) (string, error) {
				link, err := w.orch.Start(ctx, order)
				if err != nil {
					return "", err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checkout link: %s\n", link)
				return link, nil
			})
		},
	}

	cmd.Flags().Bool("post-parent", false, "Print the message an embedding page would receive")
	return cmd
}

func openCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open [link]",
		Short: "Resume a checkout from an existing payment link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, w *wiring) (string, error) {
				return args[0], nil
			})
		},
	}

	cmd.Flags().Bool("post-parent", false, "Print the message an embedding page would receive")
	return cmd
}

// withSession wires an orchestrator, asks start for the first page and
// drives the session until it settles, is abandoned or fails.
func withSession(cmd *cobra.Command, start func(ctx context.Context, w *wiring) (string, error)) error {
	postParent, _ := cmd.Flags().GetBool("post-parent")
	out := cmd.OutOrStdout()

	w, err := wire(config.LoadConfig(), out, postParent)
	if err != nil {
		return err
	}
	defer w.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	link, err := start(ctx, w)
	if err != nil {
		return err
	}

	d := &driver{
		s:     w.orch,
		nav:   w.nav,
		lines: readLines(cmd.InOrStdin()),
		out:   out,
		tick:  500 * time.Millisecond,
	}
	_, err = d.drive(ctx, link)
	return err
}

func readOrder(path string) (payment.OrderDetails, error) {
	var order payment.OrderDetails

	b, err := os.ReadFile(path)
	if err != nil {
		return order, fmt.Errorf("read order: %w", err)
	}
	if err := json.Unmarshal(b, &order); err != nil {
		return order, fmt.Errorf("parse order %s: %w", path, err)
	}
	return order, nil
}

type envelopeDecoder interface {
	Decode(token string, v any) error
}

func loadCodec() (envelopeDecoder, error) {
	cfg := config.LoadConfig()
	return envelope.NewCodec(envelope.KeyFromString(cfg.PayloadEncryptionKey), []byte(cfg.PayloadHMACKey))
}

func decodeCmd(load func() (envelopeDecoder, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [link|token]",
		Short: "Open a payment link envelope and check its expiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := tokenFromArg(args[0])
			if err != nil {
				return err
			}

			codec, err := load()
			if err != nil {
				return err
			}

			var details payment.PaymentDetails
			if err := codec.Decode(token, &details); err != nil {
				return err
			}
			if err := details.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := printJSON(out, details); err != nil {
				return err
			}

			at, err := envelope.CheckExpiry(details.Expiry(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "valid until %s\n", at.Format(time.RFC3339))
			return nil
		},
	}
	return cmd
}

// tokenFromArg accepts either a full checkout URL or the bare envelope.
func tokenFromArg(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, "http://") && !strings.HasPrefix(arg, "https://") {
		return arg, nil
	}

	u, err := url.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	q := u.Query().Get("q")
	if q == "" {
		return "", errors.New("link has no payment payload")
	}
	return q, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
