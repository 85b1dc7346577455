package logger

// NopLogger descarta todo. Para tests y para servicios sin logger inyectado.
type NopLogger struct{}

func Nop() Logger { return NopLogger{} }

func (NopLogger) With(map[string]any) Logger        { return NopLogger{} }
func (NopLogger) Debug(string, map[string]any)      {}
func (NopLogger) Info(string, map[string]any)       {}
func (NopLogger) Warn(string, map[string]any)       {}
func (NopLogger) Error(string, map[string]any)      {}
