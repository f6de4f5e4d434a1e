// Package logging provides structured logging using uber/zap.
//
// Two output modes:
//   - Production: JSON for machine parsing
//   - Development: colored console output
//
// Components receive a plain *zap.Logger (usually from Component) and
// default to zap.NewNop() when none is given, so tests stay quiet. The
// level can be changed at runtime through LevelHandler.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	if err != nil {
//		return err
//	}
//	log := logger.Component("render")
//	log.Warn("Unknown component", zap.String("type", "carousel"))
package logging
