// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nodesel/nodesel/internal/knob"
	"github.com/nodesel/nodesel/pkg/nodeversion"
)

const testRoot = "/agent/externals"

type (
	// incompatibleSet marks runtimes as glibc-incompatible.
	incompatibleSet map[nodeversion.ID]bool

	prefixTranslator struct {
		from string
		to   string
	}

	recordingDiagnostics struct {
		mu     sync.Mutex
		traces []string
		warns  []string
		errs   []string
	}

	emitted struct {
		name   string
		fields map[string]string
	}

	recordingEmitter struct {
		mu     sync.Mutex
		events []emitted
	}

	stubStrategy struct {
		name  string
		out   Outcome
		panic any
		calls int
	}
)

func (s incompatibleSet) Incompatible(_ context.Context, id nodeversion.ID) bool { return s[id] }

func (t prefixTranslator) Translate(p string) string {
	if rest, ok := strings.CutPrefix(p, t.from); ok {
		return t.to + filepath.ToSlash(rest)
	}
	return p
}

func (d *recordingDiagnostics) Trace(msg string, args ...any) { d.add(&d.traces, msg, args) }
func (d *recordingDiagnostics) Warn(msg string, args ...any) { d.add(&d.warns, msg, args) }
func (d *recordingDiagnostics) Error(msg string, args ...any) { d.add(&d.errs, msg, args) }

func (d *recordingDiagnostics) add(dst *[]string, msg string, args []any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	*dst = append(*dst, strings.TrimSpace(msg+" "+fmt.Sprint(args...)))
}

func (e *recordingEmitter) Emit(_ context.Context, name string, fields map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{name: name, fields: fields})
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) CanHandle(*ResolutionContext) (Trigger, bool) {
	return "stub", s.out.Kind != NotApplicable || s.panic != nil
}

func (s *stubStrategy) Resolve(context.Context, *ResolutionContext, Trigger) Outcome {
	s.calls++
	if s.panic != nil {
		panic(s.panic)
	}
	return s.out
}

// flags builds a knob reader from alternating name/value pairs.
func flags(kv ...string) FlagReader {
	m := knob.MapSource{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return knob.NewReader(m)
}

func hostPath(id nodeversion.ID) string {
	return filepath.Join(testRoot, id.Folder(), "bin", "node")
}

func hostContext(affinity nodeversion.ID, f FlagReader) *ResolutionContext {
	return &ResolutionContext{
		Mode:            ModeHost,
		HostOS:          "linux",
		HandlerAffinity: affinity,
		Flags:           f,
	}
}
