package logger

// nopLogger discards everything. Tests use it to keep output quiet.
type nopLogger struct{}

// NewNop returns a Logger that discards all output.
func NewNop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(string) {}
func (nopLogger) Fatal(string) {}

func (n nopLogger) WithField(string, interface{}) Logger        { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger    { return n }
func (n nopLogger) WithError(error) Logger                      { return n }

func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
