// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nodesel/nodesel/internal/knob"
	"github.com/nodesel/nodesel/pkg/nodeversion"
)

const (
	// TriggerCustom fires when a custom override path is present.
	TriggerCustom Trigger = "custom override"
	// TriggerGlobalOverride fires when the runtime's global knob is on.
	TriggerGlobalOverride Trigger = "global override"
	// TriggerAffinity fires when the task handler declares the runtime.
	TriggerAffinity Trigger = "handler affinity"
	// TriggerEOLUpgrade fires for supported runtimes while the end-of-life policy is on.
	TriggerEOLUpgrade Trigger = "EOL upgrade"
	// TriggerAlpineFallback fires when the declared runtime cannot run on Alpine.
	TriggerAlpineFallback Trigger = "Alpine fallback"
)

var customTagPattern = regexp.MustCompile(`(?i)^node(\d+)`)

type (
	// Trigger names the rule that made a strategy applicable.
	Trigger string

	// Strategy is one rule in the selection chain.
	Strategy interface {
		// Name identifies the strategy in logs and telemetry.
		Name() string
		// CanHandle reports whether the strategy applies and why.
		CanHandle(rc *ResolutionContext) (Trigger, bool)
		// Resolve computes the outcome for an applicable strategy.
		Resolve(ctx context.Context, rc *ResolutionContext, trigger Trigger) Outcome
	}

	customStrategy struct{}

	// versionStrategy selects one bundled runtime.
	versionStrategy struct {
		id nodeversion.ID
		// override is the global knob forcing this runtime.
		override string
		// gate must be on for handler affinity to select this runtime.
		gate string
		// gatedFrom is a newer runtime whose affinity this strategy accepts while
		// that runtime's gate is off.
		gatedFrom     nodeversion.ID
		gatedFromKnob string
		// alpineFallback lets the strategy claim handlers whose runtime is not
		// shipped for Alpine.
		alpineFallback bool
	}
)

// Evaluate runs a strategy against a context and returns its outcome.
func Evaluate(ctx context.Context, s Strategy, rc *ResolutionContext) Outcome {
	trigger, ok := s.CanHandle(rc)
	if !ok {
		return notApplicable()
	}
	return s.Resolve(ctx, rc, trigger)
}

// HostStrategies returns the host chain in priority order.
func HostStrategies() []Strategy {
	return []Strategy{
		customStrategy{},
		newVersionStrategy(nodeversion.Node24),
		newVersionStrategy(nodeversion.Node20_1),
		newVersionStrategy(nodeversion.Node16),
		newVersionStrategy(nodeversion.Node10),
		newVersionStrategy(nodeversion.Node6),
	}
}

// ContainerStrategies returns the container chain in priority order. Container
// images never fall back to the oldest runtimes.
func ContainerStrategies() []Strategy {
	return []Strategy{
		customStrategy{},
		newVersionStrategy(nodeversion.Node24),
		newVersionStrategy(nodeversion.Node20_1),
		newVersionStrategy(nodeversion.Node16),
	}
}

func newVersionStrategy(id nodeversion.ID) *versionStrategy {
	switch id {
	case nodeversion.Node24:
		return &versionStrategy{id: id, override: knob.UseNode24, gate: knob.UseNode24WithHandlerData}
	case nodeversion.Node20_1:
		return &versionStrategy{
			id:            id,
			override:      knob.UseNode20_1,
			gatedFrom:     nodeversion.Node24,
			gatedFromKnob: knob.UseNode24WithHandlerData,
		}
	case nodeversion.Node16:
		return &versionStrategy{id: id, override: knob.UseNode16}
	case nodeversion.Node10:
		return &versionStrategy{id: id, override: knob.UseNode10, alpineFallback: true}
	default:
		return &versionStrategy{id: nodeversion.Node6, override: knob.UseNode6}
	}
}

func (customStrategy) Name() string { return string(nodeversion.Custom) }

func (customStrategy) CanHandle(rc *ResolutionContext) (Trigger, bool) {
	return TriggerCustom, rc.customPath() != ""
}

func (customStrategy) Resolve(_ context.Context, rc *ResolutionContext, trigger Trigger) Outcome {
	p := rc.customPath()
	tag := CustomTag(p)
	if rc.Mode == ModeContainer && rc.PathTranslator != nil {
		p = rc.PathTranslator.Translate(p)
	}
	out := selected(nodeversion.Custom, fmt.Sprintf("%s: user-supplied interpreter %s", trigger, p), "")
	out.Path = p
	out.Tag = tag
	return out
}

// CustomTag derives a version label from a custom interpreter path. The first
// segment starting with "node" and a major number wins; otherwise "custom".
func CustomTag(p string) string {
	segs := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
	for _, seg := range segs {
		if m := customTagPattern.FindStringSubmatch(seg); m != nil {
			return "node" + m[1]
		}
	}
	return string(nodeversion.Custom)
}

func (s *versionStrategy) Name() string { return string(s.id) }

func (s *versionStrategy) CanHandle(rc *ResolutionContext) (Trigger, bool) {
	if rc.flag(s.override) {
		return TriggerGlobalOverride, true
	}
	affinity := rc.affinity()
	if affinity == s.id {
		// A gated runtime whose gate is off steps aside entirely, even under the EOL policy.
		if s.gate != "" && !rc.flag(s.gate) {
			return "", false
		}
		return TriggerAffinity, true
	}
	if s.gatedFrom != nodeversion.None && affinity == s.gatedFrom && !rc.flag(s.gatedFromKnob) {
		return TriggerAffinity, true
	}
	if rc.eolPolicy() && !s.id.IsEOL() {
		return TriggerEOLUpgrade, true
	}
	if s.alpineFallback && rc.HostIsAlpine && !alpineSupported(affinity) && s.id.NewerThan(affinity) {
		return TriggerAlpineFallback, true
	}
	return "", false
}

func (s *versionStrategy) Resolve(ctx context.Context, rc *ResolutionContext, trigger Trigger) Outcome {
	reason := s.reason(rc, trigger)
	if s.id.IsEOL() {
		if rc.eolPolicy() {
			return fatal(&NoCompatibleVersionError{
				Handler:       rc.handlerName(),
				Mode:          rc.Mode,
				Desired:       s.id,
				EOLRestricted: true,
			})
		}
		warning := eolWarning(rc, s.id)
		if trigger == TriggerAlpineFallback {
			warning = fmt.Sprintf("%s is not supported on Alpine Linux, using %s instead. %s",
				rc.affinity(), s.id, warning)
		}
		return selected(s.id, reason, warning)
	}
	return degrade(ctx, rc, s.id, reason)
}

func (s *versionStrategy) reason(rc *ResolutionContext, trigger Trigger) string {
	switch trigger {
	case TriggerGlobalOverride:
		return fmt.Sprintf("%s: %s is set", trigger, s.override)
	case TriggerAffinity:
		if rc.affinity() != s.id {
			return fmt.Sprintf("%s: task declares %s handler but %s is off",
				trigger, rc.handlerName(), s.gatedFromKnob)
		}
		return fmt.Sprintf("%s: task declares %s handler", trigger, rc.handlerName())
	case TriggerEOLUpgrade:
		return fmt.Sprintf("%s: %s is set, upgrading %s handler to a supported runtime",
			trigger, knob.RestrictEOLNodeVersions, rc.handlerName())
	case TriggerAlpineFallback:
		return fmt.Sprintf("%s: %s has no Alpine build", trigger, rc.affinity())
	default:
		return string(trigger)
	}
}

// degrade walks from desired towards older runtimes until one is glibc
// compatible. Reaching an end-of-life runtime fails under the EOL policy and
// otherwise selects it.
func degrade(ctx context.Context, rc *ResolutionContext, desired nodeversion.ID, reason string) Outcome {
	var incompatible []nodeversion.ID
	cur := desired
	for {
		if cur.IsEOL() {
			if rc.eolPolicy() {
				return fatal(&NoCompatibleVersionError{
					Handler:       rc.handlerName(),
					Mode:          rc.Mode,
					Desired:       desired,
					Incompatible:  incompatible,
					EOLRestricted: true,
				})
			}
			return selected(cur, glibcReason(reason, incompatible), fallbackWarning(desired, cur, incompatible)+" "+eolWarning(rc, cur))
		}
		if rc.compatible(ctx, cur) {
			if cur == desired {
				return selected(cur, reason, "")
			}
			return selected(cur, glibcReason(reason, incompatible), fallbackWarning(desired, cur, incompatible))
		}
		incompatible = append(incompatible, cur)
		next, ok := cur.Older()
		if !ok {
			return fatal(&NoCompatibleVersionError{
				Handler:      rc.handlerName(),
				Mode:         rc.Mode,
				Desired:      desired,
				Incompatible: incompatible,
				Exhausted:    true,
			})
		}
		cur = next
	}
}

func glibcReason(reason string, incompatible []nodeversion.ID) string {
	return fmt.Sprintf("%s; glibc fallback: %s incompatible with host C library", reason, joinIDs(incompatible))
}

func fallbackWarning(desired, selected nodeversion.ID, incompatible []nodeversion.ID) string {
	return fmt.Sprintf("%s requested but using %s instead: fallback to %s due to %s glibc compatibility issue",
		desired, selected, selected, joinIDs(incompatible))
}

func eolWarning(rc *ResolutionContext, id nodeversion.ID) string {
	return fmt.Sprintf("The %s handler is running on %s, which has reached end-of-life. Update the task to a supported Node handler.",
		rc.handlerName(), id)
}

// alpineSupported reports whether a runtime ships an Alpine build.
func alpineSupported(id nodeversion.ID) bool {
	return id != nodeversion.Node6
}

func joinIDs(ids []nodeversion.ID) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, string(id))
	}
	return strings.Join(names, ", ")
}
