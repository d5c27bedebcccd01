package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/lookup"
	"github.com/joseph-ayodele/petfood-scanner/internal/nutrition"
	"github.com/joseph-ayodele/petfood-scanner/internal/ocr"
	"github.com/joseph-ayodele/petfood-scanner/internal/sensitivity"
)

// DefaultConfig returns the session timing used when no config is given.
func DefaultConfig() common.ScanConfig {
	return common.ScanConfig{
		AutoAdvanceConfidence: 0.8,
		AutoAdvanceDelay:      500 * time.Millisecond,
		ConfirmIdleTimeout:    10 * time.Second,
		BarcodeCooldown:       time.Second,
		LookupTimeout:         5 * time.Second,
		RecognizeTimeout:      30 * time.Second,
		AnalysisPollInterval:  time.Second,
		AnalysisMaxAttempts:   30,
	}
}

// Option customises a Session.
type Option func(*Session)

// WithConfig sets the timing budget. Zero fields keep their defaults.
func WithConfig(cfg common.ScanConfig) Option {
	return func(s *Session) {
		d := &s.cfg
		if cfg.AutoAdvanceConfidence > 0 {
			d.AutoAdvanceConfidence = cfg.AutoAdvanceConfidence
		}
		if cfg.AutoAdvanceDelay > 0 {
			d.AutoAdvanceDelay = cfg.AutoAdvanceDelay
		}
		if cfg.ConfirmIdleTimeout > 0 {
			d.ConfirmIdleTimeout = cfg.ConfirmIdleTimeout
		}
		if cfg.BarcodeCooldown > 0 {
			d.BarcodeCooldown = cfg.BarcodeCooldown
		}
		if cfg.LookupTimeout > 0 {
			d.LookupTimeout = cfg.LookupTimeout
		}
		if cfg.RecognizeTimeout > 0 {
			d.RecognizeTimeout = cfg.RecognizeTimeout
		}
		if cfg.AnalysisPollInterval > 0 {
			d.AnalysisPollInterval = cfg.AnalysisPollInterval
		}
		if cfg.AnalysisMaxAttempts > 0 {
			d.AnalysisMaxAttempts = cfg.AnalysisMaxAttempts
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for cooldown and timestamp bookkeeping.
// Timers still run on the real clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithParser(p *nutrition.Parser) Option {
	return func(s *Session) {
		if p != nil {
			s.parser = p
		}
	}
}

func WithSessionID(id uuid.UUID) Option {
	return func(s *Session) {
		if id != uuid.Nil {
			s.id = id
		}
	}
}

type command struct {
	fn    func() error
	reply chan error
}

// event is the result of asynchronous work. It is applied only while the
// session is still in the generation that started the work.
type event struct {
	gen   uint64
	apply func()
}

// Session drives one scan through its states. All state lives on a single
// loop goroutine; public methods send commands to it and background work
// posts results back, so no two transitions ever interleave. Methods are
// safe for concurrent use.
type Session struct {
	id         uuid.UUID
	cfg        common.ScanConfig
	lookup     lookup.Lookup
	recognizer ocr.Recognizer
	analyzer   Analyzer
	parser     *nutrition.Parser
	logger     *slog.Logger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	cmds     chan command
	events   chan event
	updates  chan Transition
	outcomes chan ScanOutcome
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
	current  atomic.Int32

	// owned by run
	state         State
	gen           uint64
	reason        FailureReason
	err           error
	timer         *time.Timer
	startedAt     time.Time
	lastBarcodeAt time.Time
	barcode       *BarcodeResult
	product       *entity.FoodProduct
	lookupErr     error
	rawText       string
	ocrConf       float64
	capture       []byte
	parsed        *nutrition.ParsedNutrition
	quality       *nutrition.QualityReport
	pets          []entity.PetProfile
	assessments   []sensitivity.Assessment
}

// NewSession starts a session in Idle. lk and rec may be nil: without a
// lookup every barcode ends in ProductNotFound, and without a recognizer
// only text captures are accepted. A nil analyzer assesses in process.
// Cancelling ctx abandons in-flight work; Close must still be called.
func NewSession(ctx context.Context, lk lookup.Lookup, rec ocr.Recognizer, an Analyzer, opts ...Option) *Session {
	if an == nil {
		an = NewLocalAnalyzer(nil)
	}
	s := &Session{
		id:         uuid.New(),
		cfg:        DefaultConfig(),
		lookup:     lk,
		recognizer: rec,
		analyzer:   an,
		parser:     nutrition.NewParser(),
		logger:     slog.Default(),
		now:        time.Now,
		cmds:       make(chan command),
		events:     make(chan event, 16),
		updates:    make(chan Transition, 64),
		outcomes:   make(chan ScanOutcome, 8),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("session_id", s.id.String())
	s.ctx, s.cancel = context.WithCancel(common.WithSessionID(ctx, s.id.String()))
	go s.run()
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

// State is the current state. It may be stale by the time the caller reads it.
func (s *Session) State() State { return State(s.current.Load()) }

// Updates streams every transition. Slow readers miss updates rather than
// stall the session. The channel is closed by Close.
func (s *Session) Updates() <-chan Transition { return s.updates }

// Outcome receives one ScanOutcome per Completed or Failed. The channel is
// closed by Close.
func (s *Session) Outcome() <-chan ScanOutcome { return s.outcomes }

// Close stops the session. In-flight work is cancelled and its results are
// dropped. Later calls return ErrSessionClosed.
func (s *Session) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}

func (s *Session) run() {
	for {
		select {
		case c := <-s.cmds:
			c.reply <- c.fn()
		case ev := <-s.events:
			if ev.gen != s.gen {
				s.logger.Debug("scan.result.stale", "gen", ev.gen, "current_gen", s.gen, "state", s.state.String())
				continue
			}
			ev.apply()
		case <-s.quit:
			s.stopTimer()
			s.cancel()
			close(s.updates)
			close(s.outcomes)
			close(s.done)
			return
		}
	}
}

// do runs fn on the loop goroutine and returns its error.
func (s *Session) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.cmds <- command{fn: fn, reply: reply}:
		return <-reply
	case <-s.done:
		return common.ErrSessionClosed
	}
}

// post delivers the result of background work started in generation gen.
func (s *Session) post(gen uint64, apply func()) {
	select {
	case s.events <- event{gen: gen, apply: apply}:
	case <-s.done:
	}
}

func (s *Session) setState(to State) {
	s.stopTimer()
	from := s.state
	s.state = to
	s.gen++
	s.current.Store(int32(to))
	if to != Failed {
		s.reason, s.err = ReasonNone, nil
	}
	tr := Transition{SessionID: s.id, From: from, To: to, Reason: s.reason, Generation: s.gen, At: s.now()}
	s.logger.Info("scan.transition", "from", from.String(), "to", to.String(), "reason", string(s.reason), "gen", s.gen)
	select {
	case s.updates <- tr:
	default:
		s.logger.Warn("scan.update.dropped", "to", to.String())
	}
}

// schedule runs fn on the loop after d unless the state changes first.
func (s *Session) schedule(d time.Duration, fn func()) {
	s.stopTimer()
	gen := s.gen
	s.timer = time.AfterFunc(d, func() { s.post(gen, fn) })
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// reject explains why cmd is not allowed in the current state.
func (s *Session) reject(cmd string) error {
	if s.state.needsAttention() {
		return fmt.Errorf("%s in %s: %w", cmd, s.state, common.ErrSurfaceActive)
	}
	return fmt.Errorf("%s in %s: %w", cmd, s.state, common.ErrBadTransition)
}

func (s *Session) reset() {
	s.barcode, s.product, s.lookupErr = nil, nil, nil
	s.rawText, s.ocrConf, s.capture = "", 0, nil
	s.parsed, s.quality = nil, nil
	s.pets, s.assessments = nil, nil
	s.startedAt = s.now()
}

// Start opens the camera: Idle or Completed to AwaitingCapture.
func (s *Session) Start() error {
	return s.do(func() error {
		if s.state != Idle && s.state != Completed {
			return s.reject("start")
		}
		s.reset()
		s.setState(AwaitingCapture)
		return nil
	})
}

// OnBarcode feeds one decoded barcode frame. It reports whether the frame
// was accepted. Frames arriving within the cooldown of the last accepted
// barcode, and repeats of the barcode already on screen, are dropped.
func (s *Session) OnBarcode(b BarcodeResult) (bool, error) {
	var accepted bool
	err := s.do(func() error {
		b.Value = strings.TrimSpace(b.Value)
		if b.Value == "" {
			return fmt.Errorf("barcode: empty value: %w", common.ErrInvalidInput)
		}
		now := s.now()
		if !s.lastBarcodeAt.IsZero() && now.Sub(s.lastBarcodeAt) < s.cfg.BarcodeCooldown {
			s.logger.Debug("scan.barcode.cooldown", "barcode", b.Value)
			return nil
		}
		if s.state == BarcodeDetected && s.barcode != nil && s.barcode.Value == b.Value {
			return nil
		}
		if s.state != AwaitingCapture {
			return s.reject("barcode")
		}
		if b.Timestamp.IsZero() {
			b.Timestamp = now
		}
		s.lastBarcodeAt = now
		s.barcode = &b
		s.setState(BarcodeDetected)
		accepted = true

		if b.Confidence > s.cfg.AutoAdvanceConfidence {
			s.schedule(s.cfg.AutoAdvanceDelay, func() { s.beginLookup(b.Value) })
		} else {
			s.schedule(s.cfg.ConfirmIdleTimeout, func() {
				s.logger.Info("scan.confirm.idle_timeout", "barcode", b.Value)
				s.setState(AwaitingCapture)
			})
		}
		return nil
	})
	return accepted, err
}

// Confirm accepts the prompt on screen: a detected barcode starts its lookup,
// a found product moves on to pet selection.
func (s *Session) Confirm() error {
	return s.do(func() error {
		switch s.state {
		case BarcodeDetected:
			s.beginLookup(s.barcode.Value)
		case ProductFound:
			s.setState(AwaitingPetSelection)
		default:
			return s.reject("confirm")
		}
		return nil
	})
}

// RequestLookup looks up a typed-in barcode. It is refused while any other
// prompt is on screen.
func (s *Session) RequestLookup(barcode string) error {
	return s.do(func() error {
		switch s.state {
		case AwaitingCapture, BarcodeDetected, ProductNotFound:
		default:
			return s.reject("lookup")
		}
		barcode = strings.TrimSpace(barcode)
		if barcode == "" {
			return fmt.Errorf("lookup: empty barcode: %w", common.ErrInvalidInput)
		}
		s.barcode = &BarcodeResult{Value: barcode, Type: "manual", Confidence: 1, Timestamp: s.now()}
		s.beginLookup(barcode)
		return nil
	})
}

func (s *Session) beginLookup(code string) {
	s.setState(ProductLookupPending)
	if s.lookup == nil {
		s.lookupDone(nil, common.NotFoundLookup(code))
		return
	}
	go s.runLookup(s.gen, code)
}

func (s *Session) runLookup(gen uint64, code string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.LookupTimeout)
	defer cancel()

	type result struct {
		p   *entity.FoodProduct
		err error
	}
	r, ok := await(ctx, func() result {
		p, err := s.lookup.LookupProduct(ctx, code)
		return result{p, err}
	})
	if !ok {
		r.err = fmt.Errorf("lookup %s: %w: %w", code, common.ErrTimeout, ctx.Err())
	}
	s.post(gen, func() { s.lookupDone(r.p, r.err) })
}

// await runs fn in its own goroutine and gives up when ctx ends, so a
// collaborator that ignores its context cannot stall the session.
func await[T any](ctx context.Context, fn func() T) (T, bool) {
	ch := make(chan T, 1)
	go func() { ch <- fn() }()
	select {
	case v := <-ch:
		return v, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

func (s *Session) lookupDone(p *entity.FoodProduct, err error) {
	switch {
	case err == nil && p != nil:
		s.product = p
		s.logger.Info("scan.lookup.found", "barcode", p.Barcode, "product", p.Name)
		s.setState(ProductFound)
	case isTimeout(err):
		s.fail(ReasonTimeout, err)
	default:
		if err == nil {
			err = common.NotFoundLookup(s.barcodeValue())
		}
		s.lookupErr = err
		s.logger.Info("scan.lookup.miss", "error", err)
		s.setState(ProductNotFound)
	}
}

// LabelScan switches to nutrition label capture.
func (s *Session) LabelScan() error {
	return s.do(func() error {
		switch s.state {
		case AwaitingCapture, ProductFound, ProductNotFound:
			s.setState(NutritionCapturePending)
			return nil
		}
		return s.reject("label scan")
	})
}

// Capture submits the nutrition label. An image that cannot be decoded fails
// the session with ReasonCaptureInvalid; recognition and parsing then run in
// the background and end in AwaitingPetSelection.
func (s *Session) Capture(c Capture) error {
	return s.do(func() error {
		if s.state != NutritionCapturePending {
			return s.reject("capture")
		}
		hasText := strings.TrimSpace(c.Text) != ""
		if !hasText && len(c.Image) == 0 {
			return fmt.Errorf("capture: no text or image: %w", common.ErrInvalidInput)
		}
		if len(c.Image) > 0 {
			if _, err := ocr.ValidateCapture(c.Image); err != nil {
				s.capture = c.Image
				s.fail(ReasonCaptureInvalid, err)
				return err
			}
			if !hasText && s.recognizer == nil {
				return fmt.Errorf("capture: no recognizer for image capture: %w", common.ErrInvalidInput)
			}
		}
		s.capture = c.Image
		s.setState(Parsing)
		go s.runParse(s.gen, c)
		return nil
	})
}

func (s *Session) runParse(gen uint64, c Capture) {
	text, conf := c.Text, c.Confidence
	if strings.TrimSpace(text) == "" {
		res, err := s.recognize(c.Image)
		if err != nil {
			s.post(gen, func() {
				switch {
				case errors.Is(err, common.ErrCaptureInvalid):
					s.fail(ReasonCaptureInvalid, err)
				case isTimeout(err):
					s.fail(ReasonTimeout, err)
				default:
					s.fail(ReasonOCRFailed, err)
				}
			})
			return
		}
		text, conf = res.Text, float64(res.Confidence)
	}
	parsed := s.parser.Parse(text)
	q := parsed.Quality()
	if conf <= 0 {
		conf = q.Overall
	}
	s.post(gen, func() {
		s.rawText, s.ocrConf = text, conf
		s.parsed, s.quality = &parsed, &q
		if len(parsed.Ingredients) == 0 {
			s.logger.Warn("scan.parse.no_ingredients", "quality", q.Overall)
		}
		s.setState(AwaitingPetSelection)
	})
}

func (s *Session) recognize(img []byte) (ocr.Result, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.RecognizeTimeout)
	defer cancel()

	type result struct {
		res ocr.Result
		err error
	}
	r, ok := await(ctx, func() result {
		res, err := s.recognizer.Recognize(ctx, img)
		return result{res, err}
	})
	if !ok {
		return ocr.Result{}, fmt.Errorf("recognize: %w: %w", common.ErrTimeout, ctx.Err())
	}
	return r.res, r.err
}

// SelectPets starts the analysis for the chosen pets.
func (s *Session) SelectPets(pets ...entity.PetProfile) error {
	return s.do(func() error {
		if s.state != AwaitingPetSelection {
			return s.reject("select pets")
		}
		if len(pets) == 0 {
			return fmt.Errorf("select pets: at least one pet is required: %w", common.ErrInvalidInput)
		}
		s.pets = append([]entity.PetProfile(nil), pets...)
		req := AnalysisRequest{SessionID: s.id, Ingredients: s.ingredients(), Pets: s.pets}
		s.setState(Analyzing)
		go s.runAnalysis(s.gen, req)
		return nil
	})
}

// ingredients prefers the label the user captured over the catalog record.
func (s *Session) ingredients() []string {
	if s.parsed != nil && len(s.parsed.Ingredients) > 0 {
		return s.parsed.Ingredients
	}
	if s.product != nil {
		return s.product.Nutrition.Ingredients
	}
	return nil
}

// analysisBudget is the whole polling schedule plus one lookup-sized
// allowance for the calls themselves.
func (s *Session) analysisBudget() time.Duration {
	return time.Duration(s.cfg.AnalysisMaxAttempts)*s.cfg.AnalysisPollInterval + s.cfg.LookupTimeout
}

func (s *Session) runAnalysis(gen uint64, req AnalysisRequest) {
	budget := s.analysisBudget()
	ctx, cancel := context.WithTimeout(s.ctx, budget)
	defer cancel()

	finish := func(res []sensitivity.Assessment, err error) {
		s.post(gen, func() { s.analysisDone(res, err) })
	}
	expired := func() {
		finish(nil, fmt.Errorf("analysis exceeded %s: %w: %w", budget, common.ErrTimeout, ctx.Err()))
	}

	type submitted struct {
		id  string
		err error
	}
	sub, ok := await(ctx, func() submitted {
		id, err := s.analyzer.Submit(ctx, req)
		return submitted{id, err}
	})
	if !ok {
		expired()
		return
	}
	if sub.err != nil {
		finish(nil, sub.err)
		return
	}

	type polled struct {
		res  []sensitivity.Assessment
		done bool
		err  error
	}
	attempts := s.cfg.AnalysisMaxAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		p, ok := await(ctx, func() polled {
			res, done, err := s.analyzer.Poll(ctx, sub.id)
			return polled{res, done, err}
		})
		switch {
		case !ok:
			expired()
			return
		case p.err != nil:
			finish(nil, p.err)
			return
		case p.done:
			finish(p.res, nil)
			return
		}
		s.logger.Debug("scan.analysis.pending", "job_id", sub.id, "attempt", attempt)
		if attempt == attempts {
			break
		}
		t := time.NewTimer(s.cfg.AnalysisPollInterval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			expired()
			return
		}
	}
	finish(nil, fmt.Errorf("analysis %s not ready after %d polls: %w", sub.id, attempts, common.ErrTimeout))
}

func (s *Session) analysisDone(res []sensitivity.Assessment, err error) {
	switch {
	case isTimeout(err):
		s.fail(ReasonTimeout, err)
	case err != nil:
		s.fail(ReasonAnalysisFailed, err)
	default:
		s.assessments = res
		s.setState(Completed)
		s.emit()
	}
}

// Retry returns to AwaitingCapture after a failure or a lookup result the
// user wants to redo.
func (s *Session) Retry() error {
	return s.do(func() error {
		switch s.state {
		case Failed, ProductNotFound, ProductFound:
			s.reset()
			s.setState(AwaitingCapture)
			return nil
		}
		return s.reject("retry")
	})
}

// Cancel backs out of the current step. Work in flight is not interrupted;
// its result is discarded when it arrives.
func (s *Session) Cancel() error {
	return s.do(func() error {
		switch s.state {
		case Idle:
		case AwaitingCapture, ProductNotFound, Completed, Failed:
			s.setState(Idle)
		case BarcodeDetected, ProductFound, NutritionCapturePending, AwaitingPetSelection:
			s.setState(AwaitingCapture)
		case ProductLookupPending, Parsing, Analyzing:
			s.fail(ReasonCancelled, context.Canceled)
		}
		return nil
	})
}

func (s *Session) fail(reason FailureReason, err error) {
	s.reason, s.err = reason, err
	s.logger.Warn("scan.failed", "reason", string(reason), "error", err)
	s.setState(Failed)
	s.emit()
}

func (s *Session) emit() {
	select {
	case s.outcomes <- s.outcome():
	default:
		s.logger.Warn("scan.outcome.dropped", "state", s.state.String())
	}
}

func (s *Session) outcome() ScanOutcome {
	now := s.now()
	res := HybridScanResult{
		Barcode:        s.barcode,
		Product:        s.product,
		RawText:        s.rawText,
		ProcessingTime: now.Sub(s.startedAt),
		LastCapture:    s.capture,
	}
	res.Method, res.Confidence = s.method()
	if res.Product == nil && s.parsed != nil {
		fp := s.parsed.ToFoodProduct(uuid.New(), s.barcodeValue(), now)
		res.Product = &fp
	}
	return ScanOutcome{
		SessionID:   s.id,
		FinalState:  s.state,
		Reason:      s.reason,
		Result:      res,
		Parsed:      s.parsed,
		Quality:     s.quality,
		Assessments: s.assessments,
		Err:         s.err,
	}
}

func (s *Session) method() (ScanMethod, float64) {
	if s.state == Failed {
		return MethodFailed, 0
	}
	hasBarcode := s.barcode != nil && (s.product != nil || s.parsed != nil)
	switch {
	case hasBarcode && s.parsed != nil:
		return MethodHybrid, (s.barcode.Confidence + s.ocrConf) / 2
	case hasBarcode:
		return MethodBarcodeOnly, s.barcode.Confidence
	case s.parsed != nil:
		return MethodOCROnly, s.ocrConf
	}
	return MethodFailed, 0
}

func (s *Session) barcodeValue() string {
	if s.barcode == nil {
		return ""
	}
	return s.barcode.Value
}

func isTimeout(err error) bool {
	return errors.Is(err, common.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
