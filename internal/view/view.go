// Package view implements the runtime controller that binds a reactive
// dataflow graph to a scene graph and a pluggable renderer.
//
// A View owns its dataflow, scene graph, event handler and renderer.
// Mutation flows through signals, data changesets and the lifecycle
// setters; Run propagates changes and repaints when something changed.
// A View is not safe for concurrent use. Hosts that receive input on
// other goroutines should funnel it to a single goroutine that calls
// Dispatch and Run.
package view

import (
	"fmt"

	"github.com/dshills/vizview/internal/dataflow"
	"github.com/dshills/vizview/internal/event"
	"github.com/dshills/vizview/internal/event/dispatch"
	"github.com/dshills/vizview/internal/expr"
	"github.com/dshills/vizview/internal/loader"
	"github.com/dshills/vizview/internal/logging"
	"github.com/dshills/vizview/internal/render"
	"github.com/dshills/vizview/internal/scene"
	"github.com/dshills/vizview/internal/spec"
)

// Built-in signal names. These always exist.
const (
	SignalWidth      = "width"
	SignalHeight     = "height"
	SignalPadding    = "padding"
	SignalAutosize   = "autosize"
	SignalBackground = "background"
)

// View is a running visualization.
type View struct {
	spec     *spec.Spec
	df       *dataflow.Dataflow
	graph    *scene.Graph
	handler  *event.Handler
	exec     *dispatch.Executor
	eval     *expr.Evaluator
	logger   *logging.Logger
	onError  func(error)
	registry *render.Registry

	config    rendererConfig
	renderer  render.Renderer
	container render.Container

	redraw       bool
	resize       bool
	autosizeFlag bool
	layout       layout
	background   string

	signals  map[string]*dataflow.Operator
	datasets map[string]*dataflow.Operator
	pending  map[string]spec.Data

	marks     []*markNode
	markByBox map[*scene.Item]*markNode
	hovering  bool

	resizeListeners []*ResizeListener
	signalRegs      map[Token]signalRegistration

	timers    []*Timer
	stats     Stats
	finalized bool
}

// New builds a view from a specification.
func New(s *spec.Spec, opts ...Option) (*View, error) {
	if s == nil {
		s = &spec.Spec{}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	o := options{renderer: render.TypeCanvas}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	if !o.registry.Has(o.renderer) {
		return nil, &RendererError{Type: o.renderer}
	}

	logger := o.logger
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	logger = logger.WithComponent("view")
	if o.logLevel != nil {
		logger.SetLevel(*o.logLevel)
	}

	if o.loader == nil {
		l, err := loader.New(loader.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		o.loader = l
	}

	exec := dispatch.NewExecutor(dispatch.WithPanicHandler(func(label string, value any, stack []byte) {
		logger.Debug("panic in %s: %v\n%s", label, value, stack)
	}))

	v := &View{
		spec:         s,
		logger:       logger,
		onError:      o.onError,
		registry:     o.registry,
		exec:         exec,
		eval:         expr.NewEvaluator(),
		graph:        scene.NewGraph(),
		redraw:       true,
		autosizeFlag: true,
		background:   s.Background,
		signals:      make(map[string]*dataflow.Operator),
		datasets:     make(map[string]*dataflow.Operator),
		pending:      make(map[string]spec.Data),
		markByBox:    make(map[*scene.Item]*markNode),
		signalRegs:   make(map[Token]signalRegistration),
		config: rendererConfig{
			typ:     o.renderer,
			tooltip: o.tooltip,
			loader:  o.loader,
		},
	}
	v.df = dataflow.New(
		dataflow.WithLogger(logger.WithComponent("dataflow")),
		dataflow.WithErrorFunc(v.operatorError),
	)
	v.handler = event.NewHandler(v.graph,
		event.WithConfig(eventConfig(s.EventConfig)),
		event.WithTooltip(o.tooltip),
		event.WithLogger(logger.WithComponent("event")),
	)

	build := []func() error{
		v.buildSignals,
		v.buildData,
		v.buildMarks,
		v.buildStreams,
		v.buildSizing,
	}
	for _, fn := range build {
		if err := fn(); err != nil {
			v.eval.Close()
			return nil, err
		}
	}
	v.layout = computeLayout(v.Autosize(), v.Width(), v.Height(), v.Padding(), scene.Bounds{})

	if o.container != nil {
		if err := v.Initialize(o.container); err != nil {
			v.Finalize()
			return nil, err
		}
	}
	return v, nil
}

// buildSignals creates the built-in signals and every declared signal.
// Derived signals are created once the signals they read exist.
func (v *View) buildSignals() error {
	builtins := map[string]any{
		SignalWidth:      v.spec.Width,
		SignalHeight:     v.spec.Height,
		SignalPadding:    paddingValue(v.spec.Padding.Padding),
		SignalAutosize:   autosizeValue(v.spec.Autosize.Normalize()),
		SignalBackground: v.spec.Background,
	}
	for _, name := range []string{SignalWidth, SignalHeight, SignalPadding, SignalAutosize, SignalBackground} {
		if decl, ok := v.spec.Signal(name); ok && decl.Value != nil {
			builtins[name] = normalizeBuiltin(name, decl.Value)
		}
		if decl, ok := v.spec.Signal(name); ok && decl.Update != "" {
			continue
		}
		op, err := v.df.Signal(name, builtins[name])
		if err != nil {
			return err
		}
		v.signals[name] = op
	}

	var derived []spec.Signal
	for _, decl := range v.spec.Signals {
		if _, ok := v.signals[decl.Name]; ok {
			continue
		}
		if decl.Update != "" {
			derived = append(derived, decl)
			continue
		}
		op, err := v.df.Signal(decl.Name, decl.Value)
		if err != nil {
			return err
		}
		v.signals[decl.Name] = op
	}

	declared := make(map[string]bool, len(v.spec.Signals))
	for _, decl := range v.spec.Signals {
		declared[decl.Name] = true
	}
	for _, name := range []string{SignalWidth, SignalHeight, SignalPadding, SignalAutosize, SignalBackground} {
		declared[name] = true
	}

	for len(derived) > 0 {
		var next []spec.Signal
		for _, decl := range derived {
			ok, err := v.addDerived(decl, builtins, declared)
			if err != nil {
				return err
			}
			if !ok {
				next = append(next, decl)
			}
		}
		if len(next) == len(derived) {
			return fmt.Errorf("signal %q: circular update dependency", next[0].Name)
		}
		derived = next
	}
	return nil
}

// addDerived creates a signal computed by its update expression. It
// reports false when a signal the expression reads does not exist yet.
func (v *View) addDerived(decl spec.Signal, builtins map[string]any, declared map[string]bool) (bool, error) {
	e, err := expr.Compile(decl.Update)
	if err != nil {
		return false, fmt.Errorf("signal %q: %w", decl.Name, err)
	}

	var names []string
	var deps []*dataflow.Operator
	for _, ref := range e.Refs() {
		if !declared[ref] {
			continue
		}
		op, ok := v.signals[ref]
		if !ok {
			return false, nil
		}
		names = append(names, ref)
		deps = append(deps, op)
	}

	init := decl.Value
	if b, ok := builtins[decl.Name]; ok && init == nil {
		init = b
	}
	op, err := v.df.Add(decl.Name, init, func(values []any) (any, error) {
		env := make(expr.Env, len(names))
		for i, n := range names {
			env[n] = values[i]
		}
		out, err := v.eval.Eval(e, env)
		if err != nil {
			return nil, err
		}
		return normalizeBuiltin(decl.Name, out), nil
	}, deps...)
	if err != nil {
		return false, err
	}
	v.signals[decl.Name] = op
	return true, nil
}

// normalizeBuiltin converts a declared value for a built-in signal into
// the form the accessors read.
func normalizeBuiltin(name string, value any) any {
	value = spec.Normalize(value)
	switch name {
	case SignalPadding:
		return paddingValue(parsePadding(value))
	case SignalAutosize:
		return autosizeValue(parseAutosize(value))
	}
	return value
}

func eventConfig(c *spec.EventConfig) event.Config {
	var cfg event.Config
	if c == nil {
		return cfg
	}
	for _, t := range c.Allow {
		cfg.Allow = append(cfg.Allow, event.Type(t))
	}
	if c.Defaults != nil {
		cfg.Defaults.Prevent = policy(c.Defaults.Prevent)
		cfg.Defaults.Allow = policy(c.Defaults.Allow)
	}
	return cfg
}

func policy(b spec.BoolOrList) event.Policy {
	switch {
	case !b.Set:
		return event.Policy{}
	case b.Items != nil:
		types := make([]event.Type, len(b.Items))
		for i, t := range b.Items {
			types[i] = event.Type(t)
		}
		return event.PolicyTypes(types...)
	}
	return event.PolicyAll(b.Bool)
}

// operatorError reports a failed operator update.
func (v *View) operatorError(err error) {
	v.stats.OperatorErrors++
	v.report(err)
}

// Container returns the container the view renders into, or nil.
func (v *View) Container() render.Container {
	return v.container
}

// Scenegraph returns the scene graph.
func (v *View) Scenegraph() *scene.Graph {
	return v.graph
}

// Origin returns the translation applied to the scene root.
func (v *View) Origin() scene.Point {
	return v.layout.Origin
}

// ViewSize returns the plotting area size computed by the last sizing
// pass.
func (v *View) ViewSize() (width, height float64) {
	return v.layout.ViewWidth, v.layout.ViewHeight
}

// Handler exposes the event handler.
func (v *View) Handler() *event.Handler {
	return v.handler
}

// Dataflow exposes the dataflow graph.
func (v *View) Dataflow() *dataflow.Dataflow {
	return v.df
}

// RunAfter queues fn to run once the current or next Run has rendered.
func (v *View) RunAfter(fn func()) {
	v.df.RunAfter(fn)
}

// PreventDefault returns the fallback prevent-default policy.
func (v *View) PreventDefault() bool {
	return v.handler.PreventDefault()
}

// SetPreventDefault sets the policy used when the event configuration
// does not decide.
func (v *View) SetPreventDefault(prevent bool) {
	v.handler.SetPreventDefault(prevent)
}

// Stats are counters describing view activity.
type Stats struct {
	Runs           int
	Renders        int
	RenderErrors   int
	ListenerErrors int
	OperatorErrors int

	// Callbacks counts trapped listener and render calls; Panics the
	// ones that panicked.
	Callbacks uint64
	Panics    uint64

	// Clock and Evaluated come from the dataflow.
	Clock     int
	Evaluated int

	EventListeners  int
	ResizeListeners int
	SignalListeners int
}

// Stats returns a snapshot of the counters.
func (v *View) Stats() Stats {
	s := v.stats
	es := v.exec.Stats()
	s.Callbacks, s.Panics = es.Calls, es.Panics
	s.Clock = v.df.Clock()
	s.Evaluated = v.df.Evaluated()
	reg := v.handler.Registry()
	for _, t := range reg.Types() {
		for _, r := range reg.ByType(t) {
			if _, ok := r.Raw.(*EventListener); ok {
				s.EventListeners++
			}
		}
	}
	s.ResizeListeners = len(v.resizeListeners)
	s.SignalListeners = len(v.signalRegs)
	return s
}
