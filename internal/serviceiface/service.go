package serviceiface

// Service is a long-running component started and stopped by the app manager.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
