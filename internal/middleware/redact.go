package middleware

import "strings"

var tokenPrefixes = []string{"sub_", "shr_"}

// redactPath shortens access and share tokens in a URL path, and drops
// signed download tokens entirely.
func redactPath(p string) string {
	parts := strings.Split(p, "/")
	for i, seg := range parts {
		if i > 0 && parts[i-1] == "blobs" && seg != "" {
			parts[i] = "***"
			continue
		}
		for _, pre := range tokenPrefixes {
			if strings.HasPrefix(seg, pre) && len(seg) > len(pre)+4 {
				parts[i] = seg[:len(pre)+4] + "***"
			}
		}
	}
	return strings.Join(parts, "/")
}
