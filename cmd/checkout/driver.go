package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"paylink-checkout/internal/checkout"
	"paylink-checkout/internal/payment"
	"paylink-checkout/internal/utils"
)

var (
	errQuit  = errors.New("checkout abandoned")
	errEnded = errors.New("payment ended without settlement")
)

// session is the slice of the orchestrator the driver needs.
type session interface {
	LoadSelection(ctx context.Context, q string) (*checkout.SelectionView, error)
	SelectMethod(name string) error
	Confirm(ctx context.Context) error
	Resume(ctx context.Context, q string) error
	ProcessingView() (*checkout.ProcessingView, error)
	CheckStatus(ctx context.Context) (payment.SettlementStatus, error)
	Cancel(ctx context.Context) error
	SuccessView(ctx context.Context, q string) (*checkout.Receipt, error)
	State() checkout.State
	Settled() bool
}

// navigator queues page changes requested by the orchestrator. The driver
// follows them from its own goroutine.
type navigator struct {
	next chan string
}

func newNavigator() *navigator {
	return &navigator{next: make(chan string, 4)}
}

func (n *navigator) Navigate(ctx context.Context, url string) error {
	select {
	case n.next <- url:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// driver plays the browser tab: it renders pages to out and feeds payer
// input from lines into the orchestrator.
type driver struct {
	s     session
	nav   *navigator
	lines <-chan string
	out   io.Writer
	tick  time.Duration
}

func (d *driver) drive(ctx context.Context, start string) (*checkout.Receipt, error) {
	next := start
	for {
		page, q, err := splitPage(next)
		if err != nil {
			return nil, err
		}

		switch page {
		case checkout.PathSelection:
			next, err = d.selection(ctx, q)
		case checkout.PathProcessing:
			next, err = d.processing(ctx, q)
		case checkout.PathSuccess:
			return d.success(ctx, q)
		}
		if err != nil {
			return nil, err
		}
	}
}

// splitPage maps a checkout URL onto one of the page paths and its envelope.
func splitPage(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse checkout url: %w", err)
	}

	p := strings.TrimRight(u.Path, "/")
	for _, page := range []string{checkout.PathProcessing, checkout.PathSuccess, checkout.PathSelection} {
		if strings.HasSuffix(p, page) {
			return page, u.Query().Get("q"), nil
		}
	}
	return "", "", fmt.Errorf("not a checkout page: %q", u.Path)
}

func (d *driver) selection(ctx context.Context, q string) (string, error) {
	view, err := d.s.LoadSelection(ctx, q)
	if err != nil {
		return "", err
	}

	// an order already exists, the orchestrator forwarded us
	select {
	case next := <-d.nav.next:
		return next, nil
	default:
	}

	d.printSelection(view)
	for {
		fmt.Fprint(d.out, "method> ")
		line, err := d.readLine(ctx)
		if err != nil {
			return "", err
		}

		switch name := strings.TrimSpace(line); {
		case name == "":
			continue
		case strings.EqualFold(name, "quit"):
			return "", errQuit
		default:
			if err := d.s.SelectMethod(name); err != nil {
				msg, _ := checkout.Classify(err)
				fmt.Fprintf(d.out, "  %s\n", msg)
				continue
			}
		}

		if err := d.s.Confirm(ctx); err != nil {
			if _, retry := checkout.Classify(err); retry {
				continue
			}
			return "", err
		}
		return d.await(ctx)
	}
}

func (d *driver) processing(ctx context.Context, q string) (string, error) {
	if err := d.s.Resume(ctx, q); err != nil {
		return "", err
	}
	d.printProcessing()

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	lines := d.lines
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case next := <-d.nav.next:
			return next, nil

		case line, ok := <-lines:
			if !ok {
				// stdin closed, keep waiting for settlement
				lines = nil
				continue
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
			case "status":
				st, err := d.s.CheckStatus(ctx)
				if err != nil {
					msg, _ := checkout.Classify(err)
					fmt.Fprintf(d.out, "  %s\n", msg)
					continue
				}
				fmt.Fprintf(d.out, "  status: %s\n", st)
			case "cancel":
				if err := d.s.Cancel(ctx); err != nil {
					msg, _ := checkout.Classify(err)
					fmt.Fprintf(d.out, "  %s\n", msg)
					continue
				}
				return d.await(ctx)
			case "info":
				d.printProcessing()
			case "quit":
				return "", errQuit
			default:
				fmt.Fprintln(d.out, "  commands: status, cancel, info, quit")
			}

		case <-ticker.C:
			if d.s.Settled() && d.s.State() != checkout.StatePaid {
				return "", fmt.Errorf("%w: %s", errEnded, d.s.State())
			}
		}
	}
}

func (d *driver) success(ctx context.Context, q string) (*checkout.Receipt, error) {
	receipt, err := d.s.SuccessView(ctx, q)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(d.out, "\nPayment successful")
	fmt.Fprintf(d.out, "  Order:   %s\n", receipt.OrderID)
	fmt.Fprintf(d.out, "  Payment: %s\n", receipt.PaymentID)
	fmt.Fprintf(d.out, "  Method:  %s\n", receipt.Method)
	fmt.Fprintf(d.out, "  Amount:  %s\n", receipt.Amount)
	return receipt, nil
}

func (d *driver) await(ctx context.Context) (string, error) {
	select {
	case next := <-d.nav.next:
		return next, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *driver) readLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-d.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *driver) printSelection(view *checkout.SelectionView) {
	fmt.Fprintf(d.out, "\nChoose a payment method (total %s)\n", utils.FormatIDR(view.Order.TotalAmount))
	for _, g := range view.Groups {
		fmt.Fprintf(d.out, "  %s\n", g.Category)
		for _, m := range g.Methods {
			mark := ""
			if !m.IsActive {
				mark = " (unavailable)"
			}
			fmt.Fprintf(d.out, "    - %s%s\n", m.Name, mark)
		}
	}
}

func (d *driver) printProcessing() {
	view, err := d.s.ProcessingView()
	if err != nil {
		return
	}

	fmt.Fprintf(d.out, "\nPay %s with %s\n", view.Amount, view.Method.Name)
	if code := view.PaymentData.PaymentCode(); code != "" {
		fmt.Fprintf(d.out, "  Code: %s\n", code)
	}
	for i, step := range view.Instructions {
		fmt.Fprintf(d.out, "  %d. %s\n", i+1, step)
	}
	if view.CanCancel {
		fmt.Fprintln(d.out, "  type 'cancel' to choose another method")
	}
}

// readLines streams r line by line until EOF.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}
