// Package logger wraps zap to offer:
//   - a global sugared logger with a compact console encoder on stdout,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, WarnKV, etc.).
//
// Every component takes its logger from the context, so tests inject an
// observer core and assert on the emitted events.
package logger
