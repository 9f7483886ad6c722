// Package status holds the response status codes tiny-httpd can send.
package status

import "strconv"

type Status struct {
	Code         uint
	ReasonPhrase string
}

func (s Status) String() string {
	return strconv.FormatUint(uint64(s.Code), 10) + " " + s.ReasonPhrase
}

func (s Status) IsError() bool { return s.Code >= 400 }

// Successful 2xx
// Reference: https://datatracker.ietf.org/doc/html/rfc1945#section-9.2
var (
	OK        = add(Status{200, "OK"})
	Created   = add(Status{201, "Created"})
	Accepted  = add(Status{202, "Accepted"})
	NoContent = add(Status{204, "No Content"})
)

// Redirection 3xx
// Reference: https://datatracker.ietf.org/doc/html/rfc1945#section-9.3
var (
	MultipleChoices  = add(Status{300, "Multiple Choices"})
	MovedPermanently = add(Status{301, "Moved Permanently"})
	MovedTemporarily = add(Status{302, "Moved Temporarily"})
	NotModified      = add(Status{304, "Not Modified"})
)

// Client Error 4xx
// Reference: https://datatracker.ietf.org/doc/html/rfc1945#section-9.4
var (
	BadRequest      = add(Status{400, "Bad Request"})
	Unauthorized    = add(Status{401, "Unauthorized"})
	Forbidden       = add(Status{403, "Forbidden"})
	NotFound        = add(Status{404, "Not Found"})
	RequestTimeout  = add(Status{408, "Request Timeout"})   // Not in RFC 1945.
	ContentTooLarge = add(Status{413, "Content Too Large"}) // Not in RFC 1945.
)

// Server Error 5xx
// Reference: https://datatracker.ietf.org/doc/html/rfc1945#section-9.5
var (
	InternalServerError = add(Status{500, "Internal Server Error"})
	NotImplemented      = add(Status{501, "Not Implemented"})
	BadGateway          = add(Status{502, "Bad Gateway"})
	ServiceUnavailable  = add(Status{503, "Service Unavailable"})
)

var sm = make(map[uint]Status)

func add(status Status) Status {
	sm[status.Code] = status
	return status
}

// FromCode looks up the reason phrase for code.
// For an unknown code, the phrase is empty and ok is false.
func FromCode(code uint) (status Status, ok bool) {
	s, ok := sm[code]
	if !ok {
		return Status{Code: code}, false
	}

	return s, true
}
