package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	convertanthropic "github.com/ngoclaw/relaygate/internal/convert/anthropic"
	convertopenai "github.com/ngoclaw/relaygate/internal/convert/openai"
	"github.com/ngoclaw/relaygate/internal/convert/fromexternal"
	"github.com/ngoclaw/relaygate/internal/convert/toexternal"
	"github.com/ngoclaw/relaygate/internal/convert/toupstream"
	"github.com/ngoclaw/relaygate/internal/domain/convo"
	"github.com/ngoclaw/relaygate/internal/domain/entity"
	"github.com/ngoclaw/relaygate/internal/domain/gwerrors"
	"github.com/ngoclaw/relaygate/internal/domain/modelcatalog"
	"github.com/ngoclaw/relaygate/internal/domain/upstream"
	"github.com/ngoclaw/relaygate/internal/infrastructure/credential"
	"github.com/ngoclaw/relaygate/internal/infrastructure/customapi"
	"github.com/ngoclaw/relaygate/internal/infrastructure/eventstream"
	"github.com/ngoclaw/relaygate/internal/infrastructure/monitoring"
	"github.com/ngoclaw/relaygate/internal/infrastructure/streamengine"
	"github.com/ngoclaw/relaygate/internal/infrastructure/tokenizer"
	wireupstream "github.com/ngoclaw/relaygate/internal/infrastructure/upstreamclient"
	"github.com/ngoclaw/relaygate/internal/interfaces/http/errormap"
	"github.com/ngoclaw/relaygate/internal/interfaces/http/middleware"
	wireanthropic "github.com/ngoclaw/relaygate/internal/wire/anthropic"
	wireopenai "github.com/ngoclaw/relaygate/internal/wire/openai"
)

// GatewayConfig carries the environment knobs spec.md §6 lists as
// "representative": everything that isn't per-request shapes the
// request construction or streaming behavior.
type GatewayConfig struct {
	ProfileArn               string
	ToolDescriptionMaxLength int
	ProPlusTimeoutMultiplier float64
}

// GatewayHandler implements the three client-facing endpoints
// (/v1/chat/completions, /v1/messages, /cc/v1/messages) that translate
// onto Upstream or delegate to an external API account. It is the
// orchestration point every other package in this tree (credential
// allocation, protocol conversion, streaming, delegation) was built to
// feed into — grounded on the teacher's OpenAIHandler/MessageHandler
// for the gin-handler/SSE-writer shape, generalized from the teacher's
// synchronous-then-faked-streaming semantics to real Upstream
// streaming.
type GatewayHandler struct {
	allocator *credential.Allocator
	upstream  *wireupstream.Client
	delegate  *customapi.Client
	breakers  *customapi.BreakerRegistry
	engine    *streamengine.Engine
	metrics   *monitoring.GatewayMetrics
	cfg       GatewayConfig
	logger    *zap.Logger
}

// NewGatewayHandler wires the translation core, the credential
// allocator, and the streaming engine into gin handlers.
func NewGatewayHandler(
	allocator *credential.Allocator,
	upstreamClient *wireupstream.Client,
	delegate *customapi.Client,
	engine *streamengine.Engine,
	metrics *monitoring.GatewayMetrics,
	cfg GatewayConfig,
	logger *zap.Logger,
) *GatewayHandler {
	if cfg.ToolDescriptionMaxLength <= 0 {
		cfg.ToolDescriptionMaxLength = 2000
	}
	if cfg.ProPlusTimeoutMultiplier <= 0 {
		cfg.ProPlusTimeoutMultiplier = 1.5
	}
	return &GatewayHandler{
		allocator: allocator,
		upstream:  upstreamClient,
		delegate:  delegate,
		breakers:  customapi.NewBreakerRegistry(),
		engine:    engine,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// ChatCompletions handles POST /v1/chat/completions.
func (h *GatewayHandler) ChatCompletions(c *gin.Context) {
	defer h.countRequest(c, "/v1/chat/completions")

	var req wireopenai.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := errormap.OpenAI(gwerrors.New(gwerrors.KindInput, "malformed request body", err))
		c.JSON(status, body)
		return
	}

	normalized := convertopenai.ToNormalized(&req)
	h.serve(c, normalized, func(alloc *credential.Allocation, body io.ReadCloser, parser *eventstream.Parser) {
		if req.Stream {
			h.streamOpenAI(c, alloc, normalized, body, parser)
		} else {
			h.collectOpenAI(c, alloc, normalized, body, parser)
		}
	}, func(account *entity.ExternalAPIAccount) {
		h.delegateOpenAI(c, account, normalized, req.Stream)
	}, func(err error) {
		status, errBody := errormap.OpenAI(err)
		c.JSON(status, errBody)
	})
}

// Messages handles POST /v1/messages and POST /cc/v1/messages; the
// latter sets buffered=true, the buffered-streaming mode §4.5.2
// defines for clients that need an accurate input_tokens count up
// front instead of the standard path's local estimate.
func (h *GatewayHandler) Messages(buffered bool) gin.HandlerFunc {
	endpoint := "/v1/messages"
	if buffered {
		endpoint = "/cc/v1/messages"
	}
	return func(c *gin.Context) {
		defer h.countRequest(c, endpoint)

		var req wireanthropic.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			status, body := errormap.Anthropic(gwerrors.New(gwerrors.KindInput, "malformed request body", err))
			c.JSON(status, body)
			return
		}

		normalized := convertanthropic.ToNormalized(&req)
		h.serve(c, normalized, func(alloc *credential.Allocation, body io.ReadCloser, parser *eventstream.Parser) {
			if req.Stream {
				h.streamAnthropic(c, alloc, normalized, body, parser, buffered)
			} else {
				h.collectAnthropic(c, alloc, normalized, body, parser)
			}
		}, func(account *entity.ExternalAPIAccount) {
			h.delegateAnthropic(c, account, normalized, req.Stream)
		}, func(err error) {
			status, errBody := errormap.Anthropic(err)
			c.JSON(status, errBody)
		})
	}
}

// serve is the common allocate→open→dispatch skeleton both endpoints
// share; onUpstream/onExternal/onError differ only in which wire
// format they render.
func (h *GatewayHandler) serve(
	c *gin.Context,
	normalized *convo.Request,
	onUpstream func(alloc *credential.Allocation, body io.ReadCloser, parser *eventstream.Parser),
	onExternal func(account *entity.ExternalAPIAccount),
	onError func(err error),
) {
	userID := middleware.UserID(c)
	if normalized.Metadata == nil {
		normalized.Metadata = map[string]string{}
	}
	normalized.Metadata["user_id"] = userID

	ctx := c.Request.Context()
	alloc, err := h.allocator.Allocate(ctx, userID, normalized.Model)
	if err != nil {
		onError(gwerrors.New(gwerrors.KindInternal, "no credential available for this account", err))
		return
	}

	if alloc.ExternalAccount != nil {
		onExternal(alloc.ExternalAccount)
		return
	}

	h.metrics.AllocatorScore.Observe(alloc.Score)

	payload := toupstream.Build(normalized, toupstream.Options{
		ProfileArn:               alloc.Manager.ProfileArn(),
		ToolDescriptionMaxLength: h.cfg.ToolDescriptionMaxLength,
	})

	open := func(openCtx context.Context) (io.ReadCloser, error) {
		token, terr := alloc.Manager.AccessToken(openCtx)
		if terr != nil {
			return nil, gwerrors.New(gwerrors.KindAuthentication, "credential refresh failed", terr)
		}
		return h.upstream.Open(openCtx, token, payload)
	}

	openStart := time.Now()
	body, err := h.engine.Open(ctx, open)
	if err != nil {
		h.recordOutcome(ctx, alloc, false)
		onError(err)
		return
	}
	h.metrics.FirstTokenLatency.WithLabelValues(normalized.Model).Observe(time.Since(openStart).Seconds())

	parser := eventstream.New(h.logger)
	onUpstream(alloc, body, parser)
}

func (h *GatewayHandler) recordOutcome(ctx context.Context, alloc *credential.Allocation, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	h.metrics.CredentialOutcomes.WithLabelValues(outcome).Inc()

	if alloc.Credential == nil {
		return
	}
	if success {
		alloc.Credential.RecordSuccess(time.Now())
	} else {
		alloc.Credential.RecordFailure(time.Now())
	}
}

// countRequest increments RequestsTotal once the handler has written a
// status code; deferred at the top of each endpoint so every exit path
// (success, validation error, allocator failure) is counted exactly once.
func (h *GatewayHandler) countRequest(c *gin.Context, endpoint string) {
	outcome := "success"
	if status := c.Writer.Status(); status >= 400 {
		outcome = "error"
	}
	h.metrics.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (h *GatewayHandler) timeoutMultiplier(model string) float64 {
	if modelcatalog.RequiresProPlus(model) {
		return h.cfg.ProPlusTimeoutMultiplier
	}
	return 1
}

// ---- OpenAI streaming / collection ----

func (h *GatewayHandler) streamOpenAI(c *gin.Context, alloc *credential.Allocation, req *convo.Request, body io.ReadCloser, parser *eventstream.Parser) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	translator := convertopenai.NewTranslator(uuid.NewString(), req.Model)
	sawException := false
	var exceptionMsg string
	emit := func(ev upstream.Event) {
		if ev.Kind == upstream.EventException {
			sawException = true
			exceptionMsg = ev.ExceptionMessage
		}
		for _, frame := range translator.Handle(ev) {
			writeFrame(w, flusher, frame)
		}
	}

	err := h.engine.Run(c.Request.Context(), body, parser, emit, h.timeoutMultiplier(req.Model))
	h.recordOutcome(c.Request.Context(), alloc, err == nil && !sawException)
	if err != nil {
		h.metrics.StreamErrors.WithLabelValues("openai").Inc()
		h.logger.Warn("openai stream terminated with error", zap.Error(err))
		return
	}

	finishReason := "stop"
	if translator.HasToolCalls() {
		finishReason = "tool_calls"
	}
	if sawException {
		h.logger.Warn("upstream exception mid-stream", zap.String("message", exceptionMsg))
	}

	inputTokens := tokenizer.CountRequest(req, tokenizer.Options{})
	outputTokens := tokenizer.Count(translator.OutputText())
	usage := wireopenai.Usage{PromptTokens: inputTokens, CompletionTokens: outputTokens, TotalTokens: inputTokens + outputTokens}
	for _, frame := range translator.Finalize(finishReason, usage) {
		writeFrame(w, flusher, frame)
	}
}

func (h *GatewayHandler) collectOpenAI(c *gin.Context, alloc *credential.Allocation, req *convo.Request, body io.ReadCloser, parser *eventstream.Parser) {
	collector := convertopenai.NewCollector()
	sawException := false
	var exceptionMsg string
	emit := func(ev upstream.Event) {
		if ev.Kind == upstream.EventException {
			sawException = true
			exceptionMsg = ev.ExceptionMessage
		}
		collector.Handle(ev)
	}

	err := h.engine.Run(c.Request.Context(), body, parser, emit, h.timeoutMultiplier(req.Model))
	h.recordOutcome(c.Request.Context(), alloc, err == nil && !sawException)
	if err != nil {
		status, errBody := errormap.OpenAI(err)
		c.JSON(status, errBody)
		return
	}
	if sawException {
		status, errBody := errormap.OpenAI(gwerrors.New(gwerrors.KindProtocol, exceptionMsg, nil))
		c.JSON(status, errBody)
		return
	}

	msg, hasToolCalls := collector.Finalize()
	finishReason := "stop"
	if hasToolCalls {
		finishReason = "tool_calls"
	}
	inputTokens := tokenizer.CountRequest(req, tokenizer.Options{})
	outputTokens := tokenizer.Count(collector.OutputText())

	c.JSON(http.StatusOK, wireopenai.ChatCompletionResponse{
		ID:      uuid.NewString(),
		Object:  "chat.completion",
		Model:   req.Model,
		Choices: []wireopenai.Choice{{Index: 0, Message: msg, FinishReason: finishReason}},
		Usage: wireopenai.Usage{
			PromptTokens:     inputTokens,
			CompletionTokens: outputTokens,
			TotalTokens:      inputTokens + outputTokens,
		},
	})
}

// ---- Anthropic streaming / collection ----

func (h *GatewayHandler) streamAnthropic(c *gin.Context, alloc *credential.Allocation, req *convo.Request, body io.ReadCloser, parser *eventstream.Parser, buffered bool) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	translator := convertanthropic.NewTranslator()
	messageID := "msg_" + uuid.NewString()
	localInputTokens := tokenizer.CountRequest(req, tokenizer.Options{ClaudeCorrection: true})

	sawToolUse := false
	sawException := false
	trackToolUse := func(ev upstream.Event) {
		if ev.Kind == upstream.EventToolUseStart {
			sawToolUse = true
		}
		if ev.Kind == upstream.EventException {
			sawException = true
		}
	}

	if buffered {
		err := h.engine.RunBuffered(c.Request.Context(), body, parser, translator, h.timeoutMultiplier(req.Model),
			func(frame string) error { writeFrame(w, flusher, frame); return nil },
			func(tr *convertanthropic.Translator) (string, string, int, string, int) {
				inputTokens := localInputTokens
				if pct, ok := tr.ContextUsagePercentage(); ok {
					inputTokens = tokenizer.FromContextUsage(pct, modelcatalog.MaxInputTokens(req.Model))
				}
				return messageID, req.Model, inputTokens, stopReasonFor(req, sawToolUse), tokenizer.Count(tr.OutputText())
			},
		)
		h.recordOutcome(c.Request.Context(), alloc, err == nil)
		if err != nil {
			h.metrics.StreamErrors.WithLabelValues("anthropic_buffered").Inc()
			h.logger.Warn("anthropic buffered stream terminated with error", zap.Error(err))
		}
		return
	}

	writeFrame(w, flusher, translator.StartMessage(messageID, req.Model, localInputTokens))

	emit := func(ev upstream.Event) {
		trackToolUse(ev)
		for _, frame := range translator.Handle(ev) {
			writeFrame(w, flusher, frame)
		}
	}
	err := h.engine.Run(c.Request.Context(), body, parser, emit, h.timeoutMultiplier(req.Model))
	h.recordOutcome(c.Request.Context(), alloc, err == nil && !sawException)
	if err != nil {
		h.metrics.StreamErrors.WithLabelValues("anthropic").Inc()
		h.logger.Warn("anthropic stream terminated with error", zap.Error(err))
		return
	}

	outputTokens := tokenizer.Count(translator.OutputText())
	for _, frame := range translator.Finalize(stopReasonFor(req, sawToolUse), outputTokens) {
		writeFrame(w, flusher, frame)
	}
}

func (h *GatewayHandler) collectAnthropic(c *gin.Context, alloc *credential.Allocation, req *convo.Request, body io.ReadCloser, parser *eventstream.Parser) {
	collector := convertanthropic.NewCollector()
	sawToolUse := false
	sawException := false
	var exceptionMsg string
	emit := func(ev upstream.Event) {
		if ev.Kind == upstream.EventToolUseStart {
			sawToolUse = true
		}
		if ev.Kind == upstream.EventException {
			sawException = true
			exceptionMsg = ev.ExceptionMessage
		}
		collector.Handle(ev)
	}

	err := h.engine.Run(c.Request.Context(), body, parser, emit, h.timeoutMultiplier(req.Model))
	h.recordOutcome(c.Request.Context(), alloc, err == nil && !sawException)
	if err != nil {
		status, errBody := errormap.Anthropic(err)
		c.JSON(status, errBody)
		return
	}
	if sawException {
		status, errBody := errormap.Anthropic(gwerrors.New(gwerrors.KindProtocol, exceptionMsg, nil))
		c.JSON(status, errBody)
		return
	}

	blocks := collector.Finalize()
	inputTokens := tokenizer.CountRequest(req, tokenizer.Options{ClaudeCorrection: true})
	outputTokens := tokenizer.Count(collector.OutputText())

	c.JSON(http.StatusOK, wireanthropic.Response{
		ID:         "msg_" + uuid.NewString(),
		Type:       "message",
		Role:       "assistant",
		Model:      req.Model,
		Content:    blocks,
		StopReason: stopReasonFor(req, sawToolUse),
		Usage:      wireanthropic.Usage{InputTokens: inputTokens, OutputTokens: outputTokens},
	})
}

func stopReasonFor(req *convo.Request, sawToolUse bool) string {
	if sawToolUse {
		return convertanthropic.StopToolUse
	}
	return convertanthropic.StopEndTurn
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, frame string) {
	fmt.Fprint(w, frame)
	if flusher != nil {
		flusher.Flush()
	}
}

// ---- External-API-account delegation ----

func (h *GatewayHandler) delegateOpenAI(c *gin.Context, account *entity.ExternalAPIAccount, req *convo.Request, stream bool) {
	breaker := h.breakers.For(account.ID())
	if !breaker.Allow() {
		status, errBody := errormap.OpenAI(gwerrors.New(gwerrors.KindTransport, "external API account temporarily unavailable", nil))
		c.JSON(status, errBody)
		return
	}

	path := "/v1/chat/completions"
	var body []byte
	var err error
	if account.Format() == entity.FormatOpenAI {
		wireReq := toexternal.BuildOpenAI(req)
		wireReq.Stream = stream
		body, err = marshalJSON(wireReq)
	} else {
		path = "/v1/messages"
		wireReq := toexternal.BuildAnthropic(req)
		wireReq.Stream = stream
		body, err = marshalJSON(wireReq)
	}
	if err != nil {
		status, errBody := errormap.OpenAI(gwerrors.New(gwerrors.KindInternal, "failed to render delegated request", err))
		c.JSON(status, errBody)
		return
	}

	resp, err := h.delegate.Send(c.Request.Context(), account, path, body)
	if err != nil {
		breaker.RecordFailure()
		account.RecordFailure()
		status, errBody := errormap.OpenAI(gwerrors.Classify(err))
		c.JSON(status, errBody)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		breaker.RecordFailure()
		account.RecordFailure()
		passThrough(c, resp)
		return
	}
	breaker.RecordSuccess()
	account.RecordSuccess()

	if account.Format() == entity.FormatOpenAI || stream {
		// Same format, or a streamed body: re-translating a live SSE
		// stream frame-by-frame has no decoder in this tree, so a
		// streamed Claude-format account is only usable behind
		// /v1/chat/completions when it already speaks OpenAI.
		passThrough(c, resp)
		return
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		status, errBody := errormap.OpenAI(gwerrors.New(gwerrors.KindTransport, "failed reading delegated response", err))
		c.JSON(status, errBody)
		return
	}
	translated, err := fromexternal.AnthropicToOpenAI(raw, req.Model)
	if err != nil {
		status, errBody := errormap.OpenAI(gwerrors.New(gwerrors.KindProtocol, "delegated response did not match expected shape", err))
		c.JSON(status, errBody)
		return
	}
	c.JSON(http.StatusOK, translated)
}

func (h *GatewayHandler) delegateAnthropic(c *gin.Context, account *entity.ExternalAPIAccount, req *convo.Request, stream bool) {
	breaker := h.breakers.For(account.ID())
	if !breaker.Allow() {
		status, errBody := errormap.Anthropic(gwerrors.New(gwerrors.KindTransport, "external API account temporarily unavailable", nil))
		c.JSON(status, errBody)
		return
	}

	path := "/v1/messages"
	var body []byte
	var err error
	if account.Format() == entity.FormatAnthropic {
		wireReq := toexternal.BuildAnthropic(req)
		wireReq.Stream = stream
		raw, merr := marshalJSON(wireReq)
		if merr == nil && account.Provider() == "azure" {
			raw, merr = cleanForAzure(raw)
		}
		body, err = raw, merr
	} else {
		path = "/v1/chat/completions"
		wireReq := toexternal.BuildOpenAI(req)
		wireReq.Stream = stream
		body, err = marshalJSON(wireReq)
	}
	if err != nil {
		status, errBody := errormap.Anthropic(gwerrors.New(gwerrors.KindInternal, "failed to render delegated request", err))
		c.JSON(status, errBody)
		return
	}

	resp, err := h.delegate.Send(c.Request.Context(), account, path, body)
	if err != nil {
		breaker.RecordFailure()
		account.RecordFailure()
		status, errBody := errormap.Anthropic(gwerrors.Classify(err))
		c.JSON(status, errBody)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		breaker.RecordFailure()
		account.RecordFailure()
		passThrough(c, resp)
		return
	}
	breaker.RecordSuccess()
	account.RecordSuccess()

	if account.Format() == entity.FormatAnthropic || stream {
		passThrough(c, resp)
		return
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		status, errBody := errormap.Anthropic(gwerrors.New(gwerrors.KindTransport, "failed reading delegated response", err))
		c.JSON(status, errBody)
		return
	}
	translated, err := fromexternal.OpenAIToAnthropic(raw, req.Model)
	if err != nil {
		status, errBody := errormap.Anthropic(gwerrors.New(gwerrors.KindProtocol, "delegated response did not match expected shape", err))
		c.JSON(status, errBody)
		return
	}
	c.JSON(http.StatusOK, translated)
}

// marshalJSON renders a wire request struct as a delegated request
// body.
func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// cleanForAzure decodes raw back into a generic map, prunes the
// fields CleanForHostedVariant targets, and re-encodes it.
func cleanForAzure(raw []byte) ([]byte, error) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return raw, err
	}
	return json.Marshal(customapi.CleanForHostedVariant(generic))
}

// passThrough copies a delegated account's response straight to the
// client: status, content type, and body, unmodified. The body stays in
// the account's own wire format, which for non-2xx responses and for
// streamed responses from an account of the other format is not the
// client's format.
func passThrough(c *gin.Context, resp *http.Response) {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Writer.Header().Set("Content-Type", ct)
	}
	c.Writer.WriteHeader(resp.StatusCode)
	flusher, _ := c.Writer.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			c.Writer.Write(buf[:n])
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}
