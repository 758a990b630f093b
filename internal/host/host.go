package host

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/harun/ingat/pkg/engine"
)

// maxLineBytes bounds a single request line.
const maxLineBytes = 4 * 1024 * 1024

// Config holds host dependencies.
type Config struct {
	Engine *engine.Engine
	Logger zerolog.Logger

	// FlushInterval is a cron spec (e.g. "@every 5m") for periodic index
	// checkpoints while serving. Empty disables the background flush.
	FlushInterval string

	// In and Out default to stdin and stdout.
	In  io.Reader
	Out io.Writer
}

// Host runs the request loop.
type Host struct {
	engine *engine.Engine
	logger zerolog.Logger
	schema *gojsonschema.Schema
	cron   *cron.Cron
	in     io.Reader
	out    io.Writer

	flushInterval string
}

// New validates the config and compiles the envelope schema.
func New(cfg Config) (*Host, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(requestSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile request schema: %w", err)
	}

	in := cfg.In
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	return &Host{
		engine:        cfg.Engine,
		logger:        cfg.Logger.With().Str("component", "host").Logger(),
		schema:        schema,
		in:            in,
		out:           out,
		flushInterval: cfg.FlushInterval,
	}, nil
}

// Serve reads request lines until stdin closes or ctx is cancelled, then
// captures the session and flushes the index. Both exits are graceful.
func (h *Host) Serve(ctx context.Context) error {
	if h.flushInterval != "" {
		h.cron = cron.New()
		if _, err := h.cron.AddFunc(h.flushInterval, h.flushTick); err != nil {
			return fmt.Errorf("invalid flush interval %q: %w", h.flushInterval, err)
		}
		h.cron.Start()
	}

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(h.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	h.logger.Info().Msg("Host serving")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("Signal received, shutting down")
			return h.shutdown(context.Background())
		case err := <-scanErr:
			if err != nil {
				h.logger.Warn().Err(err).Msg("Input stream error")
			} else {
				h.logger.Info().Msg("Input closed, shutting down")
			}
			return h.shutdown(context.Background())
		case line := <-lines:
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			resp := h.Handle(ctx, line)
			if err := h.writeResponse(resp); err != nil {
				h.logger.Error().Err(err).Msg("Failed to write response")
				return h.shutdown(context.Background())
			}
		}
	}
}

// Handle processes one request line and returns the response envelope.
func (h *Host) Handle(ctx context.Context, line []byte) Response {
	id := requestID(line)

	result, err := h.schema.Validate(gojsonschema.NewBytesLoader(line))
	if err != nil {
		return errResponse(id, CodeInvalidRequest, "request is not valid JSON")
	}
	if !result.Valid() {
		return errResponse(id, CodeInvalidRequest, result.Errors()[0].String())
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errResponse(id, CodeInvalidRequest, "request is not valid JSON")
	}
	req.ID = id

	h.logger.Debug().Str("id", req.ID).Str("op", req.Op).Msg("Request received")

	resp := h.dispatch(ctx, req)
	if !resp.OK {
		h.logger.Warn().
			Str("id", req.ID).
			Str("op", req.Op).
			Str("code", resp.Error.Code).
			Msg("Request failed")
	}
	return resp
}

func (h *Host) dispatch(ctx context.Context, req Request) Response {
	switch req.Op {
	case OpOrient:
		resp, err := h.engine.Orient(ctx)
		return h.finish(req.ID, resp, err)
	case OpSearch:
		var params engine.SearchRequest
		if resp, ok := h.decodeParams(req, &params); !ok {
			return resp
		}
		resp, err := h.engine.Search(ctx, params)
		return h.finish(req.ID, resp, err)
	case OpRead:
		var params engine.ReadRequest
		if resp, ok := h.decodeParams(req, &params); !ok {
			return resp
		}
		resp, err := h.engine.Read(ctx, params)
		return h.finish(req.ID, resp, err)
	case OpWrite:
		var params engine.WriteRequest
		if resp, ok := h.decodeParams(req, &params); !ok {
			return resp
		}
		resp, err := h.engine.Write(ctx, params)
		return h.finish(req.ID, resp, err)
	case OpDelete:
		var params engine.DeleteRequest
		if resp, ok := h.decodeParams(req, &params); !ok {
			return resp
		}
		resp, err := h.engine.Delete(ctx, params)
		return h.finish(req.ID, resp, err)
	case OpList:
		var params engine.ListRequest
		if resp, ok := h.decodeParams(req, &params); !ok {
			return resp
		}
		resp, err := h.engine.List(ctx, params)
		return h.finish(req.ID, resp, err)
	default:
		// Unreachable: the schema pins the op enum.
		return errResponse(req.ID, CodeInvalidRequest, fmt.Sprintf("unknown op %q", req.Op))
	}
}

func (h *Host) decodeParams(req Request, dst interface{}) (Response, bool) {
	if len(req.Params) == 0 {
		return Response{}, true
	}
	if err := json.Unmarshal(req.Params, dst); err != nil {
		return errResponse(req.ID, CodeInvalidRequest, fmt.Sprintf("invalid params: %v", err)), false
	}
	return Response{}, true
}

func (h *Host) finish(id string, result interface{}, err error) Response {
	if err != nil {
		if errors.Is(err, engine.ErrInvalidCategory) {
			return errResponse(id, CodeInvalidCategory, err.Error())
		}
		return errResponse(id, CodeInternal, err.Error())
	}
	return okResponse(id, result)
}

func (h *Host) writeResponse(resp Response) error {
	enc := json.NewEncoder(h.out)
	return enc.Encode(resp)
}

func (h *Host) flushTick() {
	if err := h.engine.Flush(); err != nil {
		h.logger.Warn().Err(err).Msg("Periodic index flush failed")
	}
}

func (h *Host) shutdown(ctx context.Context) error {
	if h.cron != nil {
		h.cron.Stop()
	}

	path, err := h.engine.CaptureSession(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Session capture failed")
	} else if path != "" {
		h.logger.Info().Str("path", path).Msg("Session captured on shutdown")
	}

	if err := h.engine.Flush(); err != nil {
		h.logger.Warn().Err(err).Msg("Final index flush failed")
	}

	h.logger.Info().Msg("Host stopped")
	return nil
}

// requestID extracts the caller-supplied id, or mints one so the error
// response stays correlatable even for envelopes that fail validation.
func requestID(line []byte) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(line, &probe); err == nil && probe.ID != "" {
		return probe.ID
	}
	return uuid.NewString()
}
