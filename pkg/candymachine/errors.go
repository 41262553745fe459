package candymachine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrorCode is a custom error returned by the candy machine program.
type ErrorCode uint32

const (
	CodeNotEnoughSOL        ErrorCode = 309 // 0x135
	CodeCandyMachineEmpty   ErrorCode = 311 // 0x137
	CodeCandyMachineNotLive ErrorCode = 312 // 0x138
)

func (c ErrorCode) Hex() string {
	return fmt.Sprintf("0x%x", uint32(c))
}

// ProgramError carries a custom program error code recovered from a failed
// transaction or a failed simulation.
type ProgramError struct {
	Code ErrorCode
}

func (e *ProgramError) Error() string {
	return "custom program error: " + e.Code.Hex()
}

const customErrorMarker = "custom program error: "

// ProgramErrorFromJSON looks for a custom error code in a transaction error
// payload. It understands a bare transaction error
// ({"InstructionError":[2,{"Custom":311}]}), the preflight failure data of a
// JSON-RPC error ({"err":{...},"logs":[...]}), and program log lines.
func ProgramErrorFromJSON(raw string) (*ProgramError, bool) {
	if raw == "" || !gjson.Valid(raw) {
		return nil, false
	}
	for _, path := range []string{"InstructionError.1.Custom", "err.InstructionError.1.Custom"} {
		if v := gjson.Get(raw, path); v.Exists() {
			return &ProgramError{Code: ErrorCode(v.Uint())}, true
		}
	}
	for _, line := range gjson.Get(raw, "logs").Array() {
		if pe, ok := programErrorFromLog(line.String()); ok {
			return pe, true
		}
	}
	return nil, false
}

// ProgramErrorFrom marshals an arbitrary decoded error payload, such as the
// Err field of a signature status, and runs ProgramErrorFromJSON on it.
func ProgramErrorFrom(v any) (*ProgramError, bool) {
	if v == nil {
		return nil, false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return ProgramErrorFromJSON(string(b))
}

func programErrorFromLog(line string) (*ProgramError, bool) {
	i := strings.Index(strings.ToLower(line), customErrorMarker)
	if i < 0 {
		return nil, false
	}
	code := strings.TrimSpace(line[i+len(customErrorMarker):])
	code = strings.TrimPrefix(strings.ToLower(code), "0x")
	n, err := strconv.ParseUint(code, 16, 32)
	if err != nil {
		return nil, false
	}
	return &ProgramError{Code: ErrorCode(n)}, true
}
