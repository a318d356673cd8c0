package migrator

import "migrator/internal/source/registry"

var goReg = registry.New() //nolint:gochecknoglobals

// Register регистрирует Go‑миграцию с идентификатором <timestamp>_<name>.
// Используется в приложениях, которые подключают библиотеку напрямую и
// запускают миграции с kind: go. Контекст миграции реализует Execer.
func Register(name string, up, down Func) error {
	return goReg.Register(name, up, down)
}

// RegisterAsync is Register for actions that complete in the background.
func RegisterAsync(name string, up, down AsyncFunc) error {
	return goReg.RegisterAsync(name, up, down)
}
