package utils

import (
	"mindline/globals"
	"net/http"
)

func GetUserIDFromRequest(r *http.Request) string {
	if v, ok := r.Context().Value(globals.UserIDKey).(string); ok {
		return v
	}
	return ""
}

func GetUsernameFromRequest(r *http.Request) string {
	if v, ok := r.Context().Value(globals.UsernameKey).(string); ok {
		return v
	}
	return ""
}

func GetRolesFromRequest(r *http.Request) []string {
	if v, ok := r.Context().Value(globals.RoleKey).([]string); ok {
		return v
	}
	return nil
}
