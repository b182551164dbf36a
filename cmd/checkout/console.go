package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"paylink-checkout/internal/checkout"
)

// consolePresenter prints orchestrator feedback. Orchestrator goroutines
// call it concurrently.
type consolePresenter struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsolePresenter(out io.Writer) *consolePresenter {
	return &consolePresenter{out: out}
}

func (p *consolePresenter) Toast(message string) {
	p.printf("  ! %s\n", message)
}

// Countdown prints on whole minutes and through the last ten seconds.
func (p *consolePresenter) Countdown(remaining int64) {
	if remaining > 10 && remaining%60 != 0 {
		return
	}
	p.printf("  expires in %02d:%02d\n", remaining/60, remaining%60)
}

func (p *consolePresenter) ExpiredBanner() {
	p.printf("  Order expired. A payment already made will still be confirmed.\n")
}

func (p *consolePresenter) NotFound(message string) {
	p.printf("\n%s\n", message)
}

func (p *consolePresenter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// framePrinter writes the parent-window message as one JSON line, the way
// an embedding page would receive it.
type framePrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (f *framePrinter) PostParent(msg checkout.ParentMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.out, "parent: %s\n", b)
}
