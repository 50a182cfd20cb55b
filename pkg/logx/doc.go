// Package logx is castbot's structured logging layer.
//
// Logger wraps zerolog with a value-type API that components copy freely
// (the zero value discards everything). Service owns the sinks:
//   - console, either human readable or JSON lines
//   - an append-only JSON file
//   - an ops chat on Telegram for warnings and errors, rate limited
//
// Service.Apply swaps sinks and levels at runtime; loggers handed out
// earlier follow the new configuration.
package logx
