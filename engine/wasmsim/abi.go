package wasmsim

import (
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// ABIVersion is the only simulation ABI this driver accepts.
const ABIVersion = 1

// Export names of simulation ABI v1.
const (
	ExportMemory    = "memory"
	ExportVersion   = "sim_abi_version"
	ExportLayout    = "sim_layout"
	ExportPrecision = "sim_precision"
	ExportInit      = "sim_init"
	ExportEval      = "sim_eval"
	ExportSleep     = "sim_sleep"
	ExportTime      = "sim_time"

	// ExportNames is optional: () -> i32 pointing at a u32 byte length
	// followed by newline-separated signal names.
	ExportNames = "sim_names"

	// ExportRandomize is optional: (i64 seed) -> () fills undetermined
	// state from seed.
	ExportRandomize = "sim_randomize"
)

// Layout table entry: u32 offset, u32 width in bits, u32 depth.
const (
	layoutEntrySize = 12
	maxSignals      = 1 << 20
)

type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

var requiredExports = map[string]signature{
	ExportVersion:   {nil, []api.ValueType{i32}},
	ExportLayout:    {nil, []api.ValueType{i32}},
	ExportPrecision: {nil, []api.ValueType{i32}},
	ExportInit:      {[]api.ValueType{i64}, nil},
	ExportEval:      {nil, []api.ValueType{i32}},
	ExportSleep:     {[]api.ValueType{i64}, nil},
	ExportTime:      {nil, []api.ValueType{i64}},
}

// checkExports verifies that a compiled artifact exports every ABI symbol
// with the expected signature.
func checkExports(compiled wazero.CompiledModule) error {
	if _, ok := compiled.ExportedMemories()[ExportMemory]; !ok {
		return fmt.Errorf("missing memory export %q", ExportMemory)
	}

	funcs := compiled.ExportedFunctions()
	for name, want := range requiredExports {
		def, ok := funcs[name]
		if !ok {
			return fmt.Errorf("missing function export %q", name)
		}
		if !sameTypes(def.ParamTypes(), want.params) || !sameTypes(def.ResultTypes(), want.results) {
			return fmt.Errorf("export %q: signature %v -> %v, want %v -> %v",
				name, def.ParamTypes(), def.ResultTypes(), want.params, want.results)
		}
	}

	if def, ok := funcs[ExportNames]; ok {
		if len(def.ParamTypes()) != 0 || !sameTypes(def.ResultTypes(), []api.ValueType{i32}) {
			return fmt.Errorf("export %q: want () -> i32", ExportNames)
		}
	}
	if def, ok := funcs[ExportRandomize]; ok {
		if !sameTypes(def.ParamTypes(), []api.ValueType{i64}) || len(def.ResultTypes()) != 0 {
			return fmt.Errorf("export %q: want (i64) -> ()", ExportRandomize)
		}
	}
	return nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
