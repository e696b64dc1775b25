package pipeline

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/afeldman/ai-runtime/internal/tensor"
)

// LuaTransform hosts a user-supplied Lua script implementing
// transform(data, shape) -> data, shape. It wraps a single-threaded
// embedded interpreter: a *lua.LState is not safe for concurrent use,
// so every call to Run takes the same mutex.
type LuaTransform struct {
	mu   sync.Mutex
	L    *lua.LState
	fnID string
}

// NewLuaTransform loads scriptPath and binds to the global function
// named fnName (conventionally "transform").
func NewLuaTransform(scriptPath, fnName string) (*LuaTransform, error) {
	L := lua.NewState()
	if err := L.DoFile(scriptPath); err != nil {
		L.Close()
		return nil, fmt.Errorf("pipeline: loading lua script %s: %w", scriptPath, err)
	}
	fn := L.GetGlobal(fnName)
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("pipeline: lua script %s does not define function %q", scriptPath, fnName)
	}
	return &LuaTransform{L: L, fnID: fnName}, nil
}

// Close releases the embedded interpreter.
func (t *LuaTransform) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.L.Close()
	return nil
}

// Run implements Transform, serialising all calls into the shared
// LState.
func (t *LuaTransform) Run(x tensor.Tensor) (tensor.Tensor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fn := t.L.GetGlobal(t.fnID)
	dataTable := floatsToTable(t.L, x.Data)
	shapeTable := intsToTable(t.L, x.Shape)

	if err := t.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    2,
		Protect: true,
	}, dataTable, shapeTable); err != nil {
		return tensor.Tensor{}, fmt.Errorf("pipeline: calling lua %s: %w", t.fnID, err)
	}

	outShapeV := t.L.Get(-1)
	outDataV := t.L.Get(-2)
	t.L.Pop(2)

	outShapeTable, ok := outShapeV.(*lua.LTable)
	if !ok {
		return tensor.Tensor{}, fmt.Errorf("pipeline: lua %s must return (data, shape) tables", t.fnID)
	}
	outDataTable, ok := outDataV.(*lua.LTable)
	if !ok {
		return tensor.Tensor{}, fmt.Errorf("pipeline: lua %s must return (data, shape) tables", t.fnID)
	}

	outShape, err := tableToInts(outShapeTable)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("pipeline: lua %s shape return: %w", t.fnID, err)
	}
	outData, err := tableToFloats(outDataTable)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("pipeline: lua %s data return: %w", t.fnID, err)
	}

	return tensor.New(outShape, outData), nil
}

func floatsToTable(L *lua.LState, data []float32) *lua.LTable {
	tbl := L.NewTable()
	for i, v := range data {
		tbl.RawSetInt(i+1, lua.LNumber(v))
	}
	return tbl
}

func intsToTable(L *lua.LState, data []int) *lua.LTable {
	tbl := L.NewTable()
	for i, v := range data {
		tbl.RawSetInt(i+1, lua.LNumber(v))
	}
	return tbl
}

func tableToFloats(tbl *lua.LTable) ([]float32, error) {
	n := tbl.Len()
	out := make([]float32, n)
	for i := 1; i <= n; i++ {
		v := tbl.RawGetInt(i)
		num, ok := v.(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf("element %d is not a number", i)
		}
		out[i-1] = float32(num)
	}
	return out, nil
}

func tableToInts(tbl *lua.LTable) ([]int, error) {
	n := tbl.Len()
	out := make([]int, n)
	for i := 1; i <= n; i++ {
		v := tbl.RawGetInt(i)
		num, ok := v.(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf("element %d is not a number", i)
		}
		out[i-1] = int(num)
	}
	return out, nil
}
