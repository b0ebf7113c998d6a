// Package version хранит сведения о сборке, заданные через -ldflags.
package version

import "fmt"

// Service — имя сервиса в логах и health-ответах.
const Service = "storefront"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// GetCommit возвращает commit сборки.
func GetCommit() string { return commit }

// GetDate возвращает дату сборки.
func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("service=%s version=%s commit=%s date=%s", Service, version, commit, date)
}
