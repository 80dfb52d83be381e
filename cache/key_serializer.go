package cache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// MaxKeyLength is the longest key kept verbatim. Longer argument lists are
// replaced by their xxhash digest.
const MaxKeyLength = 200

type defaultKeySerializer struct {
	prefix string
}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
// A non-empty prefix namespaces every key.
func NewDefaultKeySerializer(prefix ...string) KeySerializer {
	s := &defaultKeySerializer{}
	if len(prefix) > 0 {
		s.prefix = prefix[0]
	}
	return s
}

// SerializeKey joins the method name and the serialized args with KeySeparator.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	head := method
	if s.prefix != "" {
		head = s.prefix + KeySeparator + method
	}
	if len(args) == 0 {
		return head
	}

	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, serializeValue(arg))
	}
	body := strings.Join(parts, KeySeparator)

	if len(head)+len(KeySeparator)+len(body) > MaxKeyLength {
		return head + KeySeparator + "h:" + strconv.FormatUint(xxhash.Sum64String(body), 16)
	}
	return head + KeySeparator + body
}

func serializeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return val
	case []string:
		return "[" + strings.Join(val, ",") + "]"
	case fmt.Stringer:
		return val.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", val)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T", v)
	}
	return "json:" + string(data)
}
