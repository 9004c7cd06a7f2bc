package backend

import "fmt"

// DependencyError reports that a submitted target named a dependency
// that has no recorded task id in the tracked mapping, either because it
// was never submitted in this process or because the tracked ids file
// predates it.
type DependencyError struct {
	Name string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("no recorded task id for dependency %q", e.Name)
}
