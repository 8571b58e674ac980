package email

import "strings"

// StripAddress extracts the address from a header value such as
// "Jane Doe <jane@example.com>". The result is the text strictly between the
// first '<' and the first '>'. Values without a well-formed pair are returned
// unchanged.
func StripAddress(header string) string {
	open := strings.IndexByte(header, '<')
	end := strings.IndexByte(header, '>')
	if open < 0 || end < 0 || end < open {
		return header
	}
	return header[open+1 : end]
}
