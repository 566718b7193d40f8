// Package validation normalizes and checks client-supplied chat input.
// Payloads arrive as decoded JSON, so validators accept any and treat
// non-textual values as invalid rather than panicking on type surprises.
package validation

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"roomchat/errors"
)

const (
	maxRoomIDRunes  = 100
	maxUserIDRunes  = 50
	maxMessageRunes = 1000

	defaultLimit = 50
	maxLimit     = 100
)

// htmlEscaper applies the replacement table in a single pass, never
// recursively. Re-sanitizing escaped text escapes the ampersands again;
// clients rely on that exact behaviour.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitize escapes the characters with special meaning in HTML so stored
// text renders verbatim. This is a minimal injection defense, not full
// HTML sanitization.
func Sanitize(s string) string {
	return htmlEscaper.Replace(s)
}

// RoomID checks a room identifier and returns it trimmed.
func RoomID(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.Validation("Room ID is required and must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.Validation("Room ID cannot be empty")
	}
	if utf8.RuneCountInString(s) > maxRoomIDRunes {
		return "", errors.Validation("Room ID must be at most 100 characters")
	}
	return s, nil
}

// UserID checks a user identifier and returns it trimmed.
func UserID(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.Validation("User ID is required and must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.Validation("User ID cannot be empty")
	}
	if utf8.RuneCountInString(s) > maxUserIDRunes {
		return "", errors.Validation("User ID must be at most 50 characters")
	}
	return s, nil
}

// Message checks message text and returns it trimmed and sanitized. The
// length bound applies to the trimmed text before escaping expands it.
func Message(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.Validation("Message is required and must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.Validation("Message cannot be empty")
	}
	if utf8.RuneCountInString(s) > maxMessageRunes {
		return "", errors.Validation("Message must be at most 1000 characters")
	}
	return Sanitize(s), nil
}

// GamePosition checks a board cell index. The board feature lives outside
// the messaging core but shares this validator package.
func GamePosition(v any) (int, error) {
	var n int
	switch p := v.(type) {
	case int:
		n = p
	case float64:
		if p != math.Trunc(p) {
			return 0, errors.Validation("Position must be an integer between 0 and 8")
		}
		n = int(p)
	default:
		return 0, errors.Validation("Position must be an integer between 0 and 8")
	}
	if n < 0 || n > 8 {
		return 0, errors.Validation("Position must be an integer between 0 and 8")
	}
	return n, nil
}

// Page is a validated pagination window.
type Page struct {
	Limit  int
	Offset int
}

// Pagination applies defaults for absent values and parses present ones
// permissively (leading integer, trailing garbage ignored).
func Pagination(limitV, offsetV any) (Page, error) {
	page := Page{Limit: defaultLimit, Offset: 0}
	if limitV != nil {
		n, ok := leadingInt(limitV)
		if !ok || n < 1 || n > maxLimit {
			return Page{}, errors.Validation("Limit must be an integer between 1 and 100")
		}
		page.Limit = n
	}
	if offsetV != nil {
		n, ok := leadingInt(offsetV)
		if !ok || n < 0 {
			return Page{}, errors.Validation("Offset must be a non-negative integer")
		}
		page.Offset = n
	}
	return page, nil
}

// Data carries the normalized fields of a send payload.
type Data struct {
	RoomID  string
	UserID  string
	Message string
}

// ChatData validates a send payload, short-circuiting on the first invalid
// field in roomId, userId, message order and returning that failure as is.
func ChatData(roomV, userV, msgV any) (Data, error) {
	roomID, err := RoomID(roomV)
	if err != nil {
		return Data{}, err
	}
	userID, err := UserID(userV)
	if err != nil {
		return Data{}, err
	}
	msg, err := Message(msgV)
	if err != nil {
		return Data{}, err
	}
	return Data{RoomID: roomID, UserID: userID, Message: msg}, nil
}

// AsBool coerces a JSON value the way a dynamic client runtime would:
// false, 0, NaN, "" and null are false, everything else is true.
func AsBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0 && !math.IsNaN(b)
	case string:
		return b != ""
	case nil:
		return false
	default:
		return true
	}
}

// leadingInt parses the longest leading integer of a decoded JSON value.
// Strings keep sign and digits up to the first non-digit; numbers truncate
// toward zero. Returns false when nothing parseable is present.
func leadingInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case string:
		s := strings.TrimSpace(n)
		i := 0
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i {
			return 0, false
		}
		val, err := strconv.Atoi(s[:j])
		if err != nil {
			return 0, false
		}
		return val, true
	default:
		return 0, false
	}
}
