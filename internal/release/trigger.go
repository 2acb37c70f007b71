// Package release decides whether a run may publish and uploads its artifacts
// to a versioned release.
package release

import (
	"fmt"
	"os"
	"strings"
)

// EventKind is the kind of event that started a run
type EventKind string

const (
	EventPush             EventKind = "push"
	EventPullRequest      EventKind = "pull_request"
	EventWorkflowDispatch EventKind = "workflow_dispatch"
)

const tagRefPrefix = "refs/tags/"

// ParseEventKind accepts the event names used by CI systems
func ParseEventKind(s string) (EventKind, error) {
	switch EventKind(strings.ToLower(strings.TrimSpace(s))) {
	case EventPush:
		return EventPush, nil
	case EventPullRequest, "pull_request_target":
		return EventPullRequest, nil
	case EventWorkflowDispatch, "manual":
		return EventWorkflowDispatch, nil
	}
	return "", fmt.Errorf("unknown event %q: must be one of push, pull_request, workflow_dispatch", s)
}

// TriggerContext is the event and ref a run was started for
type TriggerContext struct {
	Event EventKind `json:"event" yaml:"event"`
	Ref   string    `json:"ref" yaml:"ref"`
}

func (t TriggerContext) String() string {
	return fmt.Sprintf("%s %s", t.Event, t.Ref)
}

// Target is the release a run publishes to
type Target struct {
	Tag string `json:"tag" yaml:"tag"`
}

// Authorize returns the release target when the trigger is a push of a tag.
// Every other trigger is declined.
func Authorize(tc TriggerContext) (*Target, bool) {
	if tc.Event != EventPush {
		return nil, false
	}
	tag, ok := strings.CutPrefix(tc.Ref, tagRefPrefix)
	if !ok || tag == "" {
		return nil, false
	}
	return &Target{Tag: tag}, true
}

// DeclineReason describes why Authorize declined tc
func DeclineReason(tc TriggerContext) string {
	switch {
	case tc.Event != EventPush:
		return fmt.Sprintf("event %q is not a push", tc.Event)
	case !strings.HasPrefix(tc.Ref, tagRefPrefix):
		return fmt.Sprintf("ref %q is not a tag", tc.Ref)
	default:
		return "tag name is empty"
	}
}

// TagRef returns the fully qualified ref for tag
func TagRef(tag string) string {
	return tagRefPrefix + tag
}

// FromEnv reads the trigger from GITHUB_EVENT_NAME and GITHUB_REF. ok is false
// when neither variable is set.
func FromEnv() (tc TriggerContext, ok bool, err error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (TriggerContext, bool, error) {
	event, hasEvent := lookup("GITHUB_EVENT_NAME")
	ref, hasRef := lookup("GITHUB_REF")
	if !hasEvent && !hasRef {
		return TriggerContext{}, false, nil
	}
	if !hasEvent || event == "" {
		return TriggerContext{}, true, fmt.Errorf("GITHUB_REF is set but GITHUB_EVENT_NAME is not")
	}

	kind, err := ParseEventKind(event)
	if err != nil {
		return TriggerContext{}, true, err
	}
	return TriggerContext{Event: kind, Ref: ref}, true, nil
}
