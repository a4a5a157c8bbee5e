package risk

// Window is a contiguous word range [Start, End) of a paragraph
type Window struct {
	Index int
	Start int
	End   int
}

// Segment splits n words into overlapping windows of minLen..maxLen words.
// Stride is window length minus overlap. Text no longer than maxLen is a
// single window, and a tail shorter than minLen is covered by a final window
// aligned to the end.
func Segment(n, minLen, maxLen, overlap int) []Window {
	if n <= 0 || maxLen <= 0 {
		return nil
	}
	if minLen <= 0 || minLen > maxLen {
		minLen = maxLen
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= minLen {
		overlap = minLen - 1
	}

	if n <= maxLen {
		return []Window{{Index: 0, Start: 0, End: n}}
	}

	windows := make([]Window, 0, n/(maxLen-overlap)+1)
	for start := 0; ; {
		end := min(start+maxLen, n)
		if end-start < minLen {
			start = max(n-minLen, 0)
			end = n
		}
		windows = append(windows, Window{Index: len(windows), Start: start, End: end})
		if end == n {
			break
		}
		start += max(1, (end-start)-overlap)
	}
	return windows
}
