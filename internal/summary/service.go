package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"nuuko/internal/analytics"
	"nuuko/internal/models"
	"nuuko/internal/store"
)

// Validation errors surfaced to the HTTP layer.
var (
	ErrNoEntries = errors.New("no entries in the requested range")
	ErrNoAPIKey  = errors.New("summary generation requires an API key")
)

// connectivityProbeURL answers fast and is owned by the same provider the
// dispatch talks to.
const connectivityProbeURL = "https://generativelanguage.googleapis.com/"

// Request asks for a summary over a time range.
type Request struct {
	Cadence    string     `json:"cadence"`
	RangeStart *time.Time `json:"rangeStart,omitempty"`
	RangeEnd   *time.Time `json:"rangeEnd,omitempty"`
}

// Result is either a stored record or a queued acknowledgement.
type Result struct {
	Record *models.SummaryRecord `json:"record,omitempty"`
	Queued bool                  `json:"queued"`
}

// Options wires the service dependencies.
type Options struct {
	Store        *store.Store
	APIKey       string
	Threshold    int         // tokens per sliding window
	Window       TokenWindow // nil gets an in-memory window
	DataDir      string      // queue and telemetry persistence
	ForceOffline bool        // queue every request regardless of connectivity
	HTTPClient   *http.Client
}

// Service orchestrates summary generation: validation, offline queueing,
// token budgeting, dispatch, parsing, fallbacks, and persistence.
type Service struct {
	store     *store.Store
	client    *Client
	window    TokenWindow
	queue     *Queue
	telemetry *Telemetry
	threshold int
	apiKey    string

	forceOffline bool
	probeClient  *http.Client
	probeCache   *gocache.Cache

	// limiter paces queue drain so a burst of queued jobs cannot hammer
	// the provider the moment connectivity returns.
	limiter *rate.Limiter
	flushMu sync.Mutex
}

// NewService builds a service and loads its persisted queue and telemetry.
func NewService(opts Options) (*Service, error) {
	queue, err := NewQueue(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open summary queue: %w", err)
	}

	window := opts.Window
	if window == nil {
		window = NewMemoryTokenWindow()
	}
	probeClient := opts.HTTPClient
	if probeClient == nil {
		probeClient = &http.Client{Timeout: 5 * time.Second}
	}

	s := &Service{
		store:        opts.Store,
		client:       NewClient(opts.APIKey),
		window:       window,
		queue:        queue,
		telemetry:    NewTelemetry(opts.DataDir),
		threshold:    opts.Threshold,
		apiKey:       opts.APIKey,
		forceOffline: opts.ForceOffline,
		probeClient:  probeClient,
		probeCache:   gocache.New(30*time.Second, time.Minute),
		limiter:      rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	if opts.HTTPClient != nil {
		s.client.httpClient = opts.HTTPClient
	}
	return s, nil
}

// Telemetry returns the diagnostic event log, newest first.
func (s *Service) Telemetry() []TelemetryEvent { return s.telemetry.Events() }

// QueueLength reports pending deferred jobs.
func (s *Service) QueueLength() int { return s.queue.Len() }

// Online probes provider reachability. Any HTTP response counts; only a
// transport-level failure means offline. Probe results are cached briefly so
// queue drains do not hammer the endpoint.
func (s *Service) Online(ctx context.Context) bool {
	if s.forceOffline {
		return false
	}
	if cached, ok := s.probeCache.Get("online"); ok {
		return cached.(bool)
	}

	online := false
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, connectivityProbeURL, nil)
	if err == nil {
		if resp, err := s.probeClient.Do(req); err == nil {
			resp.Body.Close()
			online = true
		}
	}
	s.probeCache.Set("online", online, gocache.DefaultExpiration)
	return online
}

// Generate produces a summary for the requested range, queueing the job when
// offline.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	entries := s.rangeEntries(req)
	if len(entries) == 0 {
		return Result{}, ErrNoEntries
	}
	if s.apiKey == "" {
		return Result{}, ErrNoAPIKey
	}

	if !s.Online(ctx) {
		job := QueuedJob{
			ID:         fmt.Sprintf("job-%d", time.Now().UnixNano()),
			CreatedAt:  time.Now(),
			Cadence:    req.Cadence,
			RangeStart: req.RangeStart,
			RangeEnd:   req.RangeEnd,
		}
		if err := s.queue.Enqueue(job); err != nil {
			return Result{}, fmt.Errorf("queue summary job: %w", err)
		}
		s.telemetry.Record(TelemetryEvent{Kind: EventQueued, Message: fmt.Sprintf("queued %s summary (%d pending)", req.Cadence, s.queue.Len())})
		return Result{Queued: true}, nil
	}

	record, err := s.generateOnline(ctx, req, entries)
	if err != nil {
		return Result{}, err
	}
	saved, err := s.store.SaveSummaryRecord(ctx, record)
	if err != nil {
		return Result{}, err
	}
	return Result{Record: &saved}, nil
}

// rangeEntries returns the entries participating in summaries for the
// request's range, newest first.
func (s *Service) rangeEntries(req Request) []models.Entry {
	r := analytics.Range{}
	if req.RangeStart != nil {
		r.Start = *req.RangeStart
	}
	if req.RangeEnd != nil {
		r.End = *req.RangeEnd
	}
	all := analytics.FilterByRange(s.store.Entries(), r)
	included := make([]models.Entry, 0, len(all))
	for _, e := range all {
		if e.Included() {
			included = append(included, e)
		}
	}
	return included
}

// generateOnline runs token budgeting, dispatch and parsing, falling back to
// the local generator on quota or threshold pressure. Coverage spans every
// entry in the range, including ones the sanitizer dropped from the prompt.
func (s *Service) generateOnline(ctx context.Context, req Request, entries []models.Entry) (models.SummaryRecord, error) {
	settings := s.store.Settings()
	snapshot := analytics.BuildSnapshot(entries)
	excerpts := sanitizeEntries(entries)
	prompt := buildPrompt(settings.UserName, cadenceLabel(req.Cadence), snapshot, excerpts)

	snapJSON, _ := json.Marshal(snapshot)
	estimated := EstimateTokens(prompt) + EstimateTokens(string(snapJSON)) + estimatedOutputTokens

	used, err := s.window.Used(ctx)
	if err != nil {
		log.Printf("⚠️ [SUMMARY] Token window read failed, assuming empty: %v", err)
		used = 0
	}
	if s.threshold > 0 && used+estimated >= s.threshold {
		s.telemetry.Record(TelemetryEvent{Kind: EventFallback, Reason: "threshold", Tokens: used + estimated})
		return s.fallbackRecord(req, entries, snapshot, "threshold"), nil
	}

	s.telemetry.Record(TelemetryEvent{Kind: EventDispatch, Tokens: estimated})
	text, model, err := s.client.GenerateText(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.telemetry.Record(TelemetryEvent{Kind: EventFallback, Reason: "quota", Model: model, Message: err.Error()})
			return s.fallbackRecord(req, entries, snapshot, "quota"), nil
		}
		s.telemetry.Record(TelemetryEvent{Kind: EventError, Model: model, Message: err.Error()})
		return models.SummaryRecord{}, fmt.Errorf("summary dispatch: %w", err)
	}

	if err := s.window.Record(ctx, estimated); err != nil {
		log.Printf("⚠️ [SUMMARY] Token usage record failed: %v", err)
	}
	s.telemetry.Record(TelemetryEvent{Kind: EventSuccess, Model: model, Tokens: estimated})

	parsed := parseModelResponse(text)
	record := models.SummaryRecord{
		CreatedAt:       time.Now(),
		RangeStart:      req.RangeStart,
		RangeEnd:        req.RangeEnd,
		EntryIDs:        entryIDs(entries),
		Cadence:         req.Cadence,
		Model:           model,
		Text:            parsed.Text,
		Highlights:      parsed.Highlights,
		Cards:           parsed.Cards,
		SummarySentence: parsed.SummarySentence,
		Analytics:       &snapshot,
		Status:          models.SummaryStatusReady,
	}
	return models.NormalizeSummary(record, record.CreatedAt), nil
}

func (s *Service) fallbackRecord(req Request, entries []models.Entry, snapshot models.AnalyticsSnapshot, reason string) models.SummaryRecord {
	settings := s.store.Settings()
	text, highlights := buildFallbackSummary(settings.UserName, cadenceLabel(req.Cadence), snapshot)
	record := models.SummaryRecord{
		CreatedAt:  time.Now(),
		RangeStart: req.RangeStart,
		RangeEnd:   req.RangeEnd,
		EntryIDs:   entryIDs(entries),
		Cadence:    req.Cadence,
		Model:      models.FallbackModelID,
		Text:       text,
		Highlights: highlights,
		Analytics:  &snapshot,
		Status:     models.SummaryStatusFallback,
	}
	log.Printf("📉 [SUMMARY] Local fallback summary generated (reason: %s)", reason)
	return models.NormalizeSummary(record, record.CreatedAt)
}

// FlushQueue drains deferred jobs one at a time, FIFO. A failing job goes
// back to the head and stops the drain; everything behind it waits.
func (s *Service) FlushQueue(ctx context.Context) (int, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	flushed := 0
	for {
		if !s.Online(ctx) {
			break
		}
		job, ok, err := s.queue.Dequeue()
		if err != nil {
			return flushed, fmt.Errorf("dequeue summary job: %w", err)
		}
		if !ok {
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			if reErr := s.queue.Requeue(job); reErr != nil {
				log.Printf("⚠️ [SUMMARY] Requeue after cancellation failed: %v", reErr)
			}
			return flushed, err
		}

		entries := s.rangeEntries(Request{RangeStart: job.RangeStart, RangeEnd: job.RangeEnd})
		if len(entries) == 0 {
			// The entries vanished since queueing; drop the job.
			s.telemetry.Record(TelemetryEvent{Kind: EventError, Message: fmt.Sprintf("job %s dropped: no entries remain", job.ID)})
			continue
		}

		record, err := s.generateOnline(ctx, Request{Cadence: job.Cadence, RangeStart: job.RangeStart, RangeEnd: job.RangeEnd}, entries)
		if err != nil {
			if reErr := s.queue.Requeue(job); reErr != nil {
				log.Printf("⚠️ [SUMMARY] Requeue after failure failed: %v", reErr)
			}
			return flushed, fmt.Errorf("flush job %s: %w", job.ID, err)
		}
		if _, err := s.store.SaveSummaryRecord(ctx, record); err != nil {
			if reErr := s.queue.Requeue(job); reErr != nil {
				log.Printf("⚠️ [SUMMARY] Requeue after save failure failed: %v", reErr)
			}
			return flushed, err
		}
		if err := s.store.MarkSummaryRun(ctx, time.Now()); err != nil {
			log.Printf("⚠️ [SUMMARY] Could not record summary run time: %v", err)
		}
		flushed++
	}

	if flushed > 0 {
		s.telemetry.Record(TelemetryEvent{Kind: EventQueueDone, Message: fmt.Sprintf("flushed %d queued jobs", flushed)})
	}
	return flushed, nil
}

// WatchConnectivity polls reachability and flushes the queue when it comes
// back. Returns when ctx is done.
func (s *Service) WatchConnectivity(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.queue.Len() == 0 {
				continue
			}
			if s.Online(ctx) {
				if _, err := s.FlushQueue(ctx); err != nil {
					log.Printf("⚠️ [SUMMARY] Queue flush failed: %v", err)
				}
			}
		}
	}
}

func entryIDs(entries []models.Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func cadenceLabel(cadence string) string {
	switch cadence {
	case models.CadenceWeekly:
		return "week"
	case models.CadenceMonthly:
		return "month"
	case models.CadenceYearly:
		return "year"
	default:
		return "period"
	}
}
