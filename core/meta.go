package core

// =============================================================================
// Task kinds and system categories
// =============================================================================

// TaskKind labels where a task runs.
type TaskKind int

const (
	TaskKindAsync TaskKind = iota
	TaskKindLocal
	TaskKindSystem
)

func (k TaskKind) String() string {
	switch k {
	case TaskKindAsync:
		return "async"
	case TaskKindLocal:
		return "local"
	case TaskKindSystem:
		return "system"
	default:
		return "unknown"
	}
}

func (k TaskKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SystemCategory controls how a system task is treated during shutdown.
type SystemCategory int

const (
	// SystemCategoryDefault tasks are rejected once the runtime is stopping.
	SystemCategoryDefault SystemCategory = iota
	// SystemCategoryReleaseResources tasks close OS handles and similar. They
	// bypass the shutdown gate and are served before default tasks.
	SystemCategoryReleaseResources
)

func (c SystemCategory) String() string {
	switch c {
	case SystemCategoryDefault:
		return "default"
	case SystemCategoryReleaseResources:
		return "release_resources"
	default:
		return "unknown"
	}
}

// =============================================================================
// TaskMeta
// =============================================================================

// TaskMeta configures an async task spawn.
type TaskMeta struct {
	name      string
	placement Placement
}

// DefaultTaskMeta returns an unnamed meta with Any placement.
func DefaultTaskMeta() TaskMeta {
	return TaskMeta{placement: Any()}
}

func (m TaskMeta) Name() string         { return m.name }
func (m TaskMeta) Placement() Placement { return m.placement }

// TaskMetaBuilder builds a TaskMeta.
type TaskMetaBuilder struct {
	meta TaskMeta
}

// NewTaskMeta starts a TaskMeta with Any placement.
func NewTaskMeta() *TaskMetaBuilder {
	return &TaskMetaBuilder{meta: DefaultTaskMeta()}
}

func (b *TaskMetaBuilder) Name(name string) *TaskMetaBuilder {
	b.meta.name = name
	return b
}

func (b *TaskMetaBuilder) Placement(p Placement) *TaskMetaBuilder {
	b.meta.placement = p
	return b
}

func (b *TaskMetaBuilder) Build() TaskMeta {
	return b.meta
}

// =============================================================================
// SystemTaskMeta
// =============================================================================

// SystemTaskMeta configures a blocking system task.
type SystemTaskMeta struct {
	name     string
	category SystemCategory
}

// DefaultSystemTaskMeta returns an unnamed meta in the default category.
func DefaultSystemTaskMeta() SystemTaskMeta {
	return SystemTaskMeta{category: SystemCategoryDefault}
}

func (m SystemTaskMeta) Name() string             { return m.name }
func (m SystemTaskMeta) Category() SystemCategory { return m.category }

type SystemTaskMetaBuilder struct {
	meta SystemTaskMeta
}

func NewSystemTaskMeta() *SystemTaskMetaBuilder {
	return &SystemTaskMetaBuilder{meta: DefaultSystemTaskMeta()}
}

func (b *SystemTaskMetaBuilder) Name(name string) *SystemTaskMetaBuilder {
	b.meta.name = name
	return b
}

func (b *SystemTaskMetaBuilder) Category(c SystemCategory) *SystemTaskMetaBuilder {
	b.meta.category = c
	return b
}

func (b *SystemTaskMetaBuilder) Build() SystemTaskMeta {
	return b.meta
}

// =============================================================================
// LocalTaskMeta
// =============================================================================

// LocalTaskMeta configures a task spawned onto the current worker.
type LocalTaskMeta struct {
	name string
}

func (m LocalTaskMeta) Name() string { return m.name }

type LocalTaskMetaBuilder struct {
	meta LocalTaskMeta
}

func NewLocalTaskMeta() *LocalTaskMetaBuilder {
	return &LocalTaskMetaBuilder{}
}

func (b *LocalTaskMetaBuilder) Name(name string) *LocalTaskMetaBuilder {
	b.meta.name = name
	return b
}

func (b *LocalTaskMetaBuilder) Build() LocalTaskMeta {
	return b.meta
}
