// Package scope builds components per job or step execution, bound to the values of that
// execution. A Definition declares the placeholders a component needs; the Registry binds
// all of them before the component is built, so a missing or mistyped value fails the
// execution before it does any work.
package scope

import "fmt"

// Kind is the lifetime of a scoped component.
type Kind int

const (
	// Step components are built for every StepExecution.
	Step Kind = iota
	// Job components are built once per JobExecution, on first use.
	Job
)

func (k Kind) String() string {
	if k == Job {
		return "job"
	}
	return "step"
}

// Source is where a placeholder value is looked up.
type Source int

const (
	JobParameters Source = iota
	JobExecutionContext
	StepExecutionContext
)

func (s Source) String() string {
	switch s {
	case JobExecutionContext:
		return "jobExecutionContext"
	case StepExecutionContext:
		return "stepExecutionContext"
	default:
		return "jobParameters"
	}
}

// ValueType is the type a placeholder value is coerced to.
type ValueType int

const (
	String ValueType = iota
	Int
	Long
	Float
	Date
	DateTime
	Enum
	// Structured values are JSON documents, or maps, decoded on demand with Values.Decode.
	Structured
)

func (t ValueType) String() string {
	switch t {
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	case Enum:
		return "enum"
	case Structured:
		return "structured"
	default:
		return "string"
	}
}

// Placeholder declares one value a component is bound to.
type Placeholder struct {
	Name     string
	Source   Source
	Type     ValueType
	Required bool
	// Enum lists the accepted values of an Enum placeholder.
	Enum []string
	// Default is used when an optional placeholder has no value.
	Default any
}

// Param declares a required job parameter.
func Param(name string, typ ValueType) Placeholder {
	return Placeholder{Name: name, Source: JobParameters, Type: typ, Required: true}
}

// JobContextValue declares a required value of the job ExecutionContext.
func JobContextValue(name string, typ ValueType) Placeholder {
	return Placeholder{Name: name, Source: JobExecutionContext, Type: typ, Required: true}
}

// StepContextValue declares a required value of the step ExecutionContext.
func StepContextValue(name string, typ ValueType) Placeholder {
	return Placeholder{Name: name, Source: StepExecutionContext, Type: typ, Required: true}
}

// Optional makes the placeholder optional, falling back to def when absent.
func (p Placeholder) Optional(def any) Placeholder {
	p.Required = false
	p.Default = def
	return p
}

// OneOf turns the placeholder into an Enum over values.
func (p Placeholder) OneOf(values ...string) Placeholder {
	p.Type = Enum
	p.Enum = append([]string(nil), values...)
	return p
}

func (p Placeholder) String() string {
	return fmt.Sprintf("#{%s['%s']}(%s)", p.Source, p.Name, p.Type)
}
