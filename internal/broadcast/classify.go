package broadcast

import (
	kit "castbot/internal/transport"
)

// classify maps a send result to an outcome. Structured errors whose code
// is in hard are HardFailed; every other error is SoftFailed.
func classify(err error, hard map[int]bool) Outcome {
	if err == nil {
		return Outcome{Kind: Sent}
	}
	code, ok := kit.ErrorCode(err)
	if ok && hard[code] {
		return Outcome{Kind: HardFailed, Code: code, Reason: err.Error()}
	}
	return Outcome{Kind: SoftFailed, Code: code, Reason: err.Error()}
}
