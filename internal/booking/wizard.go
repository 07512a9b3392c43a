package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ramsoftware/website-backend/internal/calendar"
	"github.com/ramsoftware/website-backend/pkg/apiclient"
	"github.com/ramsoftware/website-backend/pkg/kvstore"
	"github.com/ramsoftware/website-backend/pkg/scheduler"
)

// DefaultAutosaveInterval is how often an open form is saved.
const DefaultAutosaveInterval = 30 * time.Second

const autosaveTimeout = 5 * time.Second

// ErrInvalidStep is returned by GoTo for a step outside 1..TotalSteps.
var ErrInvalidStep = errors.New("invalid step")

// Options configures a Wizard.
type Options struct {
	// Drafts is the client-scoped store holding the saved form.
	Drafts    kvstore.Store
	Submitter Submitter
	// Scheduler drives autosave. Nil disables the periodic save.
	Scheduler        scheduler.Scheduler
	AutosaveInterval time.Duration
	// Now is the clock; its location is the visitor's timezone.
	Now     func() time.Time
	Blocked []time.Time
	Logger  *zap.Logger
}

// Wizard is one visitor's booking form. All methods are safe for concurrent
// use; events are applied one at a time.
type Wizard struct {
	mu        sync.Mutex
	step      Step
	text      map[string]string
	lists     map[string][]string
	cal       *calendar.Calendar
	files     []Attachment
	drafts    *DraftStore
	submitter Submitter
	autosave  scheduler.Handle
	logger    *zap.Logger
	now       func() time.Time
	closed    bool
}

// State is a read-only projection of the form for rendering.
type State struct {
	Step         Step         `json:"step"`
	Progress     float64      `json:"progress"`
	Steps        []StepStatus `json:"steps"`
	Fields       Draft        `json:"fields"`
	Counter      CharCounter  `json:"counter"`
	Attachments  []Attachment `json:"attachments"`
	SelectedDate string       `json:"selected_date"`
	TimeSlots    []string     `json:"time_slots,omitempty"`
}

// New builds a wizard at Step1, restores any saved draft and starts autosave.
func New(ctx context.Context, opts Options) *Wizard {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Drafts == nil {
		opts.Drafts = kvstore.NewMemory()
	}
	if opts.Submitter == nil {
		opts.Submitter = apiclient.NewStub(0)
	}
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = DefaultAutosaveInterval
	}

	w := &Wizard{
		cal:       calendar.New(opts.Now, opts.Blocked...),
		drafts:    NewDraftStore(opts.Drafts),
		submitter: opts.Submitter,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	w.reset()
	w.restore(ctx)
	if opts.Scheduler != nil {
		w.autosave = opts.Scheduler.Every(opts.AutosaveInterval, w.autosaveTick)
	}
	return w
}

func (w *Wizard) reset() {
	w.step = Step1
	w.text = make(map[string]string)
	w.lists = map[string][]string{FieldServiceType: {}}
	w.cal.Clear()
	w.files = nil
}

func (w *Wizard) restore(ctx context.Context) {
	entries, err := w.drafts.Load(ctx)
	if err != nil {
		w.logger.Warn("discarding saved booking draft", zap.Error(err))
		return
	}
	for name, raw := range entries {
		f, ok := LookupField(name)
		if !ok {
			continue
		}
		switch f.Kind {
		case KindHoneypot:
		case KindCheckbox:
			var vals []string
			if err := json.Unmarshal(raw, &vals); err == nil {
				w.lists[name] = vals
			}
		case KindHidden:
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				continue
			}
			if err := w.cal.Restore(v); err != nil {
				w.logger.Debug("saved call date dropped", zap.String("value", v), zap.Error(err))
			}
		default:
			var v string
			if err := json.Unmarshal(raw, &v); err == nil {
				w.text[name] = v
			}
		}
	}
}

func (w *Wizard) autosaveTick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	if err := w.saveLocked(ctx); err != nil {
		w.logger.Warn("booking autosave failed", zap.Error(err))
	}
}

func (w *Wizard) snapshotLocked() Draft {
	d := make(Draft, len(Fields))
	for _, f := range Fields {
		switch f.Kind {
		case KindHoneypot:
		case KindCheckbox:
			d[f.Name] = append([]string{}, w.lists[f.Name]...)
		case KindRadio:
			if v := w.text[f.Name]; v != "" {
				d[f.Name] = v
			}
		case KindHidden:
			d[f.Name] = w.cal.Value()
		default:
			d[f.Name] = w.text[f.Name]
		}
	}
	return d
}

func (w *Wizard) saveLocked(ctx context.Context) error {
	return w.drafts.Save(ctx, w.snapshotLocked())
}

// Save writes the current fields to the draft store.
func (w *Wizard) Save(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.saveLocked(ctx)
}

func (w *Wizard) saveAfterTransition(ctx context.Context) {
	if err := w.saveLocked(ctx); err != nil {
		w.logger.Warn("booking draft save failed", zap.Int("step", int(w.step)), zap.Error(err))
	}
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Get returns the value of a single-valued field.
func (w *Wizard) Get(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == FieldSelectedDate {
		return w.cal.Value()
	}
	return w.text[name]
}

// List returns the checked values of a checkbox group.
func (w *Wizard) List(name string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lists[name]...)
}

func (w *Wizard) writable(name string, kinds ...Kind) (Field, error) {
	if w.closed {
		return Field{}, ErrClosed
	}
	f, ok := LookupField(name)
	if !ok {
		return Field{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Kind == KindHidden {
		return Field{}, fmt.Errorf("%w: %s", ErrReadOnlyField, name)
	}
	for _, k := range kinds {
		if f.Kind == k {
			return f, nil
		}
	}
	return Field{}, fmt.Errorf("%w: %s", ErrWrongFieldKind, name)
}

var singleValued = []Kind{KindText, KindEmail, KindURL, KindTel, KindSelect, KindTextarea, KindRadio, KindHoneypot}

// Set writes a single-valued field.
func (w *Wizard) Set(name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.writable(name, singleValued...); err != nil {
		return err
	}
	w.text[name] = value
	return nil
}

// SetList replaces the checked values of a checkbox group.
func (w *Wizard) SetList(name string, values []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.writable(name, KindCheckbox); err != nil {
		return err
	}
	w.lists[name] = dedupe(values)
	return nil
}

// FieldValue is one write for SetMany: List for checkbox groups, Text for
// every other field.
type FieldValue struct {
	Text   string
	List   []string
	IsList bool
}

// SetMany writes several fields as one event. Every name is checked first;
// if any write would fail nothing is changed.
func (w *Wizard) SetMany(values map[string]FieldValue) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, name := range sortedNames(values) {
		kinds := singleValued
		if values[name].IsList {
			kinds = []Kind{KindCheckbox}
		}
		if _, err := w.writable(name, kinds...); err != nil {
			return err
		}
	}
	for name, v := range values {
		if v.IsList {
			w.lists[name] = dedupe(v.List)
		} else {
			w.text[name] = v.Text
		}
	}
	return nil
}

func sortedNames(values map[string]FieldValue) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Toggle checks or unchecks one value of a checkbox group.
func (w *Wizard) Toggle(name, value string, checked bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.writable(name, KindCheckbox); err != nil {
		return err
	}
	cur := w.lists[name]
	out := make([]string, 0, len(cur)+1)
	for _, v := range cur {
		if v != value {
			out = append(out, v)
		}
	}
	if checked {
		out = append(out, value)
	}
	w.lists[name] = out
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// ValidateField checks one field on its own, returning a *FieldError when it
// is invalid.
func (w *Wizard) ValidateField(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := LookupField(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Kind == KindCheckbox || f.Kind == KindHidden || f.Kind == KindHoneypot {
		return nil
	}
	if fe := checkValue(f, w.text[name]); fe != nil {
		return fe
	}
	return nil
}

func (w *Wizard) validateStepLocked(step Step) *ValidationError {
	verr := &ValidationError{Step: step}
	for _, f := range Fields {
		if f.Step != step || !f.Required {
			continue
		}
		if fe := checkValue(f, w.text[f.Name]); fe != nil {
			verr.Fields = append(verr.Fields, fe)
		}
	}
	if step == Step2 && len(w.lists[FieldServiceType]) == 0 {
		verr.NoServiceType = true
	}
	if len(verr.Fields) == 0 && !verr.NoServiceType {
		return nil
	}
	return verr
}

// ValidateStep runs the advance checks for step without moving.
func (w *Wizard) ValidateStep(step Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if verr := w.validateStepLocked(step); verr != nil {
		return verr
	}
	return nil
}

// Advance moves to the next step when the current one validates. On failure
// it returns a *ValidationError and the step is unchanged.
func (w *Wizard) Advance(ctx context.Context) (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.step, ErrClosed
	}
	if w.step == Step3 {
		return w.step, ErrLastStep
	}
	if verr := w.validateStepLocked(w.step); verr != nil {
		return w.step, verr
	}
	w.step++
	w.saveAfterTransition(ctx)
	return w.step, nil
}

// Retreat moves to the previous step without validation.
func (w *Wizard) Retreat(ctx context.Context) Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.step == Step1 {
		return w.step
	}
	w.step--
	w.saveAfterTransition(ctx)
	return w.step
}

// GoTo jumps to a step. Going back is unconditional; going forward requires
// every step in between to validate.
func (w *Wizard) GoTo(ctx context.Context, target Step) (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.step, ErrClosed
	}
	if !target.Valid() {
		return w.step, fmt.Errorf("%w: %d", ErrInvalidStep, target)
	}
	if target == w.step {
		return w.step, nil
	}
	for s := w.step; s < target; s++ {
		if verr := w.validateStepLocked(s); verr != nil {
			return w.step, verr
		}
	}
	w.step = target
	w.saveAfterTransition(ctx)
	return w.step, nil
}

// Progress returns the completion percentage shown by the progress bar.
func (w *Wizard) Progress() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return float64(w.step) / float64(TotalSteps) * 100
}

// Counter returns the project description length indicator.
func (w *Wizard) Counter() CharCounter {
	w.mu.Lock()
	defer w.mu.Unlock()
	return counterFor(utf8.RuneCountInString(w.text[FieldProject]))
}

// Calendar renders the visible month.
func (w *Wizard) Calendar() calendar.Grid {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cal.Render()
}

// NextMonth shows the following month.
func (w *Wizard) NextMonth() calendar.Grid {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cal.NextMonth()
	return w.cal.Render()
}

// PrevMonth shows the preceding month.
func (w *Wizard) PrevMonth() calendar.Grid {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cal.PrevMonth()
	return w.cal.Render()
}

// SelectDate picks a YYYY-MM-DD day and returns the offered time slots.
func (w *Wizard) SelectDate(day string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	d, err := w.cal.ParseDay(day)
	if err != nil {
		return nil, err
	}
	return w.cal.Select(d)
}

// SelectTime picks a slot for the selected day and returns the combined value.
func (w *Wizard) SelectTime(slot string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return "", ErrClosed
	}
	return w.cal.SelectTime(slot)
}

// Attach adds every acceptable file and reports each rejected one. Accepted
// files are appended to those already attached.
func (w *Wizard) Attach(files ...Attachment) (accepted []Attachment, rejected []error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, []error{ErrClosed}
	}
	for _, f := range files {
		if err := CheckAttachment(f); err != nil {
			rejected = append(rejected, err)
			continue
		}
		w.files = append(w.files, f)
		accepted = append(accepted, f)
	}
	return accepted, rejected
}

// RemoveAttachment drops the attachment at index i and returns it.
func (w *Wizard) RemoveAttachment(i int) (Attachment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return Attachment{}, ErrClosed
	}
	if i < 0 || i >= len(w.files) {
		return Attachment{}, fmt.Errorf("%w: %d", ErrAttachmentMissing, i)
	}
	removed := w.files[i]
	w.files = append(w.files[:i:i], w.files[i+1:]...)
	return removed, nil
}

// Attachments returns the accepted files in order.
func (w *Wizard) Attachments() []Attachment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Attachment(nil), w.files...)
}

// State returns a projection of the whole form.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := State{
		Step:         w.step,
		Progress:     float64(w.step) / float64(TotalSteps) * 100,
		Steps:        stepStatuses(w.step),
		Fields:       w.snapshotLocked(),
		Counter:      counterFor(utf8.RuneCountInString(w.text[FieldProject])),
		Attachments:  append([]Attachment{}, w.files...),
		SelectedDate: w.cal.Value(),
	}
	if _, ok := w.cal.Selected(); ok {
		st.TimeSlots = append([]string(nil), calendar.TimeSlots...)
	}
	return st
}

func (w *Wizard) payloadLocked() Payload {
	names := make([]string, 0, len(w.files))
	var keys []string
	for _, f := range w.files {
		names = append(names, f.Name)
		if f.Key != "" {
			keys = append(keys, f.Key)
		}
	}
	urgency := w.text[FieldUrgency]
	if urgency == "" {
		urgency = DefaultUrgency
	}
	return Payload{
		FullName:           w.text[FieldFullName],
		Email:              w.text[FieldEmail],
		CompanyName:        w.text[FieldCompanyName],
		JobTitle:           w.text[FieldJobTitle],
		Phone:              w.text[FieldPhone],
		Website:            w.text[FieldWebsite],
		ServiceTypes:       append([]string{}, w.lists[FieldServiceType]...),
		Budget:             w.text[FieldBudget],
		Timeline:           w.text[FieldTimeline],
		TeamSize:           w.text[FieldTeamSize],
		TechStack:          w.text[FieldTechStack],
		ProjectDescription: w.text[FieldProject],
		ReferralSource:     w.text[FieldReferral],
		ContactTime:        w.text[FieldContactTime],
		UrgencyLevel:       urgency,
		Attachments:        names,
		AttachmentKeys:     keys,
		SelectedDate:       w.cal.Value(),
		SubmittedAt:        w.now().UTC(),
	}
}

// Submit sends the inquiry. A populated honeypot returns ErrHoneypot without
// contacting the API. On success the draft is cleared and the form resets to
// Step1; on failure the form is left as it was.
func (w *Wizard) Submit(ctx context.Context) (*Payload, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if w.text[FieldHoneypot] != "" {
		w.logger.Info("booking submission dropped", zap.String("reason", "honeypot"))
		return nil, ErrHoneypot
	}
	if w.step != Step3 {
		return nil, ErrNotOnLastStep
	}
	if verr := w.validateStepLocked(Step3); verr != nil {
		return nil, verr
	}
	if w.cal.Value() == "" {
		return nil, ErrNoDate
	}

	p := w.payloadLocked()
	res, err := w.submitter.Request(ctx, http.MethodPost, apiclient.ResourceBookings, p)
	if err != nil {
		w.logger.Error("booking submission failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	if !res.Success {
		w.logger.Warn("booking submission rejected", zap.String("error", res.Error))
		return nil, fmt.Errorf("%w: %s", ErrSubmitFailed, res.Error)
	}

	if err := w.drafts.Clear(ctx); err != nil {
		w.logger.Warn("clear booking draft failed", zap.Error(err))
	}
	w.reset()
	w.logger.Info("booking submitted",
		zap.String("email", p.Email),
		zap.String("selected_date", p.SelectedDate),
		zap.Int("attachments", len(p.Attachments)),
	)
	return &p, nil
}

// Close saves the form one last time and cancels autosave. Further events
// return ErrClosed.
func (w *Wizard) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.autosave != nil {
		w.autosave.Cancel()
	}
	return w.saveLocked(ctx)
}
