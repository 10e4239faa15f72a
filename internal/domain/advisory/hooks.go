package advisory

import "context"

// HookEvent is a lifecycle point of an advisory write.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterUpdate  HookEvent = "after_update"
	AfterDelete  HookEvent = "after_delete"
)

// Hook runs at a lifecycle point. Before-hooks abort the write by returning
// an error; errors of after-hooks are logged only.
type Hook func(ctx context.Context, adv *Advisory) error

// HookRegistry stores lifecycle hooks. Register hooks before serving requests.
type HookRegistry struct {
	hooks map[HookEvent][]Hook
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[HookEvent][]Hook)}
}

// On registers a hook for the specified event.
func (r *HookRegistry) On(event HookEvent, hook Hook) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the event and stops at the first error.
func (r *HookRegistry) Run(ctx context.Context, event HookEvent, adv *Advisory) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, adv); err != nil {
			return err
		}
	}
	return nil
}

// OnBeforeCreate registers a hook to run before create.
func (r *HookRegistry) OnBeforeCreate(hook Hook) { r.On(BeforeCreate, hook) }

// OnBeforeUpdate registers a hook to run before update.
func (r *HookRegistry) OnBeforeUpdate(hook Hook) { r.On(BeforeUpdate, hook) }
