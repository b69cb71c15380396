package logging

import (
	"log/slog"
	"time"
)

// Field names shared by every component so log queries stay uniform.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldRole      = "role"
	FieldSchoolID  = "school_id"
	FieldModule    = "module"
	FieldFunction  = "function"
	FieldState     = "state"
	FieldIP        = "ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

func Service(name string) slog.Attr { return slog.String(FieldService, name) }

func UserID(id string) slog.Attr { return slog.String(FieldUserID, id) }

func Role(role string) slog.Attr { return slog.String(FieldRole, role) }

func SchoolID(id string) slog.Attr { return slog.String(FieldSchoolID, id) }

func Module(name string) slog.Attr { return slog.String(FieldModule, name) }

func Function(name string) slog.Attr { return slog.String(FieldFunction, name) }

// State returns an attribute for a dispatcher state name.
func State(name string) slog.Attr { return slog.String(FieldState, name) }

func IP(ip string) slog.Attr { return slog.String(FieldIP, ip) }

func Method(method string) slog.Attr { return slog.String(FieldMethod, method) }

func Path(path string) slog.Attr { return slog.String(FieldPath, path) }

func Status(code int) slog.Attr { return slog.Int(FieldStatus, code) }

// Duration reports d in whole milliseconds.
func Duration(d time.Duration) slog.Attr { return slog.Int64(FieldDuration, d.Milliseconds()) }

// Error returns an attribute for err. A nil error yields an empty value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
