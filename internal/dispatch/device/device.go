// Package device is the print agent's counterpart of the dispatch
// engine: the same chain contract over transports that only exist on
// the device (native printer plugins, a BLE link, a vendor print app,
// the desktop browser's wireless API). Availability is probed once at
// startup; a method missing from the runtime is excluded from the
// chain, never attempted-and-failed.
package device

import (
	"context"
	"fmt"
	"net/url"

	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/dispatch"
)

// AccessoryPrinter is the native vendor SDK plugin (e.g. a Star
// accessory bridge) exposed by the host wrapper.
type AccessoryPrinter interface {
	PrintReceipt(ctx context.Context, content []byte) error
}

// RawTextPrinter is the secondary plugin path: plain text plus an
// explicit cut, for printers the accessory SDK does not drive.
type RawTextPrinter interface {
	PrintRawText(ctx context.Context, text string, cut bool) error
}

// Link is a low-MTU wireless link to a paired printer. Writes must be
// framed by the caller; the link itself has no buffering guarantees.
type Link interface {
	Connect(ctx context.Context) error
	WriteFrame(ctx context.Context, frame []byte) error
	Close() error
}

// URILauncher hands a URI to the OS. Used for vendor print apps that
// register a URL scheme.
type URILauncher interface {
	Launch(ctx context.Context, uri string) error
}

// Capabilities is the result of the startup probe. A nil field means
// the runtime does not offer that method.
type Capabilities struct {
	Accessory AccessoryPrinter
	RawText   RawTextPrinter
	Link      Link // native BLE plugin
	Launcher  URILauncher
	WebLink   Link // desktop browser wireless API
}

// Options tune the chain; FrameSize is the negotiated link MTU
// payload, 20 bytes unless the link reports otherwise.
type Options struct {
	FrameSize  int
	PaperWidth string // mm, forwarded to the vendor app
}

const defaultFrameSize = 20

// BuildChain assembles the agent's engine in priority order from the
// probed capabilities.
func BuildChain(lg *logger.Logger, caps Capabilities, opts Options) *dispatch.Engine {
	frame := opts.FrameSize
	if frame <= 0 {
		frame = defaultFrameSize
	}
	var senders []dispatch.Sender
	if caps.Accessory != nil {
		senders = append(senders, &accessorySender{p: caps.Accessory})
	}
	if caps.RawText != nil {
		senders = append(senders, &rawTextSender{p: caps.RawText})
	}
	if caps.Link != nil {
		senders = append(senders, &linkSender{name: "ble", link: caps.Link, frameSize: frame})
	}
	if caps.Launcher != nil {
		senders = append(senders, &vendorAppSender{launcher: caps.Launcher, paperWidth: opts.PaperWidth})
	}
	if caps.WebLink != nil {
		senders = append(senders, &linkSender{name: "web-ble", link: caps.WebLink, frameSize: frame})
	}
	return dispatch.New(lg, senders...)
}

type accessorySender struct{ p AccessoryPrinter }

func (s *accessorySender) Name() string { return "accessory" }

func (s *accessorySender) Send(ctx context.Context, payload []byte) error {
	return s.p.PrintReceipt(ctx, payload)
}

type rawTextSender struct{ p RawTextPrinter }

func (s *rawTextSender) Name() string { return "raw-text" }

func (s *rawTextSender) Send(ctx context.Context, payload []byte) error {
	return s.p.PrintRawText(ctx, string(payload), true)
}

// linkSender writes the payload as sequential fixed-size frames,
// waiting for each write to complete before the next so the printer's
// receive buffer is never overrun.
type linkSender struct {
	name      string
	link      Link
	frameSize int
}

func (s *linkSender) Name() string { return s.name }

func (s *linkSender) Send(ctx context.Context, payload []byte) error {
	if err := s.link.Connect(ctx); err != nil {
		return fmt.Errorf("connect link: %w", err)
	}
	defer s.link.Close()

	for off := 0; off < len(payload); off += s.frameSize {
		end := off + s.frameSize
		if end > len(payload) {
			end = len(payload)
		}
		if err := s.link.WriteFrame(ctx, payload[off:end]); err != nil {
			return fmt.Errorf("write frame at %d: %w", off, err)
		}
	}
	return nil
}

// vendorAppSender hands the receipt off to an installed vendor print
// app through its URL scheme. The hand-off is fire-and-forget: a
// successful launch counts as a successful print, the app gives no
// confirmation back.
type vendorAppSender struct {
	launcher   URILauncher
	paperWidth string
}

const vendorScheme = "starpassprnt://v1/print/nopreview"

func (s *vendorAppSender) Name() string { return "vendor-app" }

func (s *vendorAppSender) Send(ctx context.Context, payload []byte) error {
	width := s.paperWidth
	if width == "" {
		width = "58"
	}
	q := url.Values{}
	q.Set("html", string(payload))
	q.Set("size", width)
	q.Set("cut", "feed")
	if err := s.launcher.Launch(ctx, vendorScheme+"?"+q.Encode()); err != nil {
		return fmt.Errorf("launch vendor app: %w", err)
	}
	return nil
}
