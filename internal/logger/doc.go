// Package logger wraps zap for the recovery tools:
//   - a global sugared logger with a console encoder on stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing,
//   - leveled convenience functions (Infof, ErrorKV, etc.).
//
// Services take a context and pull the logger out of it, so every line
// carries the name of the tool that wrote it.
package logger
