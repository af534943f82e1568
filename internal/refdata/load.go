package refdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed defaults.cue
var defaultsSource string

// Error codes reported by LoadError.
const (
	ErrCodeNotFound    = "R001" // Reference directory missing
	ErrCodeNoFiles     = "R002" // No CUE files in directory
	ErrCodeLoadFailed  = "R003" // CUE load failed
	ErrCodeBuildFailed = "R004" // CUE build or unification failed
	ErrCodeIncomplete  = "R005" // A value is missing or not concrete
	ErrCodeDecode      = "R006" // Export to Go types failed
	ErrCodeTemplate    = "R007" // Expense template invariant violated
)

// LoadError describes why reference data could not be compiled.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var defaultTables = sync.OnceValues(func() (*Tables, error) {
	ctx := cuecontext.New()
	return decode(compileDefaults(ctx))
})

// Defaults returns the embedded reference tables.
// The result is shared; callers must not mutate it.
func Defaults() (*Tables, error) {
	return defaultTables()
}

// MustDefaults is Defaults that panics on error.
// The embedded source is covered by tests, so this only fails on a broken build.
func MustDefaults() *Tables {
	t, err := Defaults()
	if err != nil {
		panic(err)
	}
	return t
}

// CompileString unifies CUE source with the embedded defaults and schema.
// filename is used in error positions.
func CompileString(filename, src string) (*Tables, error) {
	ctx := cuecontext.New()
	base := compileDefaults(ctx)
	overlay := ctx.CompileString(src, cue.Filename(filename))
	if err := overlay.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, err)
	}
	return decode(base.Unify(overlay))
}

// Load unifies every CUE file in dir with the embedded defaults and schema.
// An empty dir returns the defaults.
func Load(dir string) (*Tables, error) {
	if dir == "" {
		return Defaults()
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reference directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing reference directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("scanning %s: %v", dir, err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	ctx := cuecontext.New()
	overlay := ctx.BuildInstance(inst)
	if err := overlay.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, err)
	}
	return decode(compileDefaults(ctx).Unify(overlay))
}

func compileDefaults(ctx *cue.Context) cue.Value {
	return ctx.CompileString(defaultsSource, cue.Filename("defaults.cue"))
}

// decode validates the unified value and exports it into Go types.
func decode(v cue.Value) (*Tables, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeBuildFailed, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeIncomplete, err)
	}

	tables := &Tables{}
	if err := exportPath(v, "pay_rates", &tables.PayRates); err != nil {
		return nil, err
	}
	if err := exportPath(v, "expense_template", &tables.ExpenseTemplate); err != nil {
		return nil, err
	}
	if err := tables.validate(); err != nil {
		return nil, err
	}
	return tables, nil
}

// exportPath round-trips one field through JSON so numbers land in
// decimal.Decimal without passing through float64.
func exportPath(v cue.Value, path string, dst any) error {
	field := v.LookupPath(cue.ParsePath(path))
	if !field.Exists() {
		return &LoadError{Code: ErrCodeIncomplete, Message: fmt.Sprintf("%s is required", path)}
	}
	data, err := field.MarshalJSON()
	if err != nil {
		return cueError(ErrCodeIncomplete, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("%s: %v", path, err), Pos: field.Pos()}
	}
	return nil
}

// cueError converts a CUE error into a LoadError carrying the first
// reported position.
func cueError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: err.Error()}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return le
	}
	first := errs[0]
	le.Message = first.Error()
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
