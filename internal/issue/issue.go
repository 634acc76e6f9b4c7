// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/nodesel/nodesel/internal/container"
	"github.com/nodesel/nodesel/internal/resolver"
)

const (
	NoCompatibleRuntimeId Id = iota + 1
	EOLRuntimeRestrictedId
	ContainerEngineNotFoundId
	ConfigLoadFailedId
	InvalidHandlerId
	ExternalsNotFoundId
	ContainerProbeFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a Markdown help page shown when a command fails.
	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink  // documentation about this issue type
		extLinks []HttpLink  // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal Markdown using the glamour style at stylePath.
func (i *Issue) Render(stylePath string) (string, error) {
	var extra strings.Builder
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extra.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			fmt.Fprintf(&extra, "- <%s>\n", link)
		}
	}
	return render(string(i.mdMsg)+extra.String(), stylePath)
}

var (
	render = glamour.Render

	noCompatibleRuntimeIssue = &Issue{
		id: NoCompatibleRuntimeId,
		mdMsg: `
# No compatible Node runtime!

None of the bundled Node runtimes can run the task on this machine.

## Common causes:
- The host C library is too old for node24 and node20_1
- The remaining older runtimes were rejected by policy

## Things you can try:
- Run the job on a newer host image
- Let the agent skip the glibc probe if you know the runtime works:
~~~
$ nodesel resolve --knob AGENT_USE_NODE20_IN_UNSUPPORTED_SYSTEM=true
~~~`,
		extLinks: []HttpLink{"https://nodejs.org/en/about/previous-releases"},
	}

	eolRuntimeRestrictedIssue = &Issue{
		id: EOLRuntimeRestrictedId,
		mdMsg: `
# End-of-life runtime blocked!

The task needs an end-of-life Node runtime, and the agent forbids them.

## Things you can try:
- Update the task to the Node20_1 or Node24 handler
- Allow end-of-life runtimes on this agent:
~~~
$ export AGENT_RESTRICT_EOL_NODE_VERSIONS=false
~~~`,
		extLinks: []HttpLink{"https://nodejs.org/en/about/previous-releases"},
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

Container mode needs Docker or Podman to probe the job container.

## Things you can try:
- Install Docker or Podman and make sure it is in your PATH
- Pick the engine explicitly:
~~~
$ nodesel resolve --container --engine podman
~~~

- Resolve for the host instead by dropping --container`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file exists but could not be read or validated.

## Things you can try:
- Show where nodesel looks for its configuration:
~~~
$ nodesel config path
~~~

- Dump the effective defaults and compare:
~~~
$ nodesel config dump
~~~

- Check TOML syntax and key names`,
	}

	invalidHandlerIssue = &Issue{
		id: InvalidHandlerId,
		mdMsg: `
# Unknown Node handler!

The handler name does not match any bundled runtime.

## Valid handlers:
- Node24
- Node20_1
- Node16
- Node10
- Node (the legacy default)`,
	}

	externalsNotFoundIssue = &Issue{
		id: ExternalsNotFoundId,
		mdMsg: `
# Externals directory not found!

The agent's externals directory holds one folder per bundled Node runtime.

## Things you can try:
- Point nodesel at the agent installation:
~~~
$ nodesel resolve --externals /opt/agent/externals
~~~

- Set externals_dir in the configuration file`,
	}

	containerProbeFailedIssue = &Issue{
		id: ContainerProbeFailedId,
		mdMsg: `
# Container probe failed!

The container engine could not run node inside the job container.

## Things you can try:
- Check that the container is running
- Check that the externals directory is mounted into the container
- Increase probe_timeout if the container is slow to respond`,
	}

	issues = map[Id]*Issue{
		noCompatibleRuntimeIssue.Id():     noCompatibleRuntimeIssue,
		eolRuntimeRestrictedIssue.Id():    eolRuntimeRestrictedIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		invalidHandlerIssue.Id():          invalidHandlerIssue,
		externalsNotFoundIssue.Id():       externalsNotFoundIssue,
		containerProbeFailedIssue.Id():    containerProbeFailedIssue,
	}
)

// Values returns every registered issue ordered by ID.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}

// ForError picks the help page matching err, or nil when none applies.
func ForError(err error) *Issue {
	var noCompat *resolver.NoCompatibleVersionError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &noCompat) && noCompat.EOLRestricted:
		return Get(EOLRuntimeRestrictedId)
	case errors.Is(err, resolver.ErrNoCompatibleVersion):
		return Get(NoCompatibleRuntimeId)
	case errors.Is(err, container.ErrEngineNotAvailable):
		return Get(ContainerEngineNotFoundId)
	}
	return nil
}
