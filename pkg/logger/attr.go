package logger

import "log/slog"

// Error records a single error under the key "error". Nil yields an empty
// attribute, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the subsystem emitting the log line.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// OrgID records the tenant identifier.
func OrgID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("org_id", id)
}

// UserID records the acting user identifier.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// RequestID records the request identifier.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Event records a short event name.
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Duration records an elapsed time.
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
