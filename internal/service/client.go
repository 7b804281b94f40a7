package service

import "strings"

// ClientInfo carries the request headers an event is annotated with
type ClientInfo struct {
	UserAgent    string
	ForwardedFor string
	RealIP       string
}

// ClientIP picks the address to record for an event: the forwarded-for
// header when present, else the real-ip header. Only the first entry of a
// comma-separated chain is used.
func ClientIP(forwardedFor, realIP string) *string {
	value := forwardedFor
	if value == "" {
		value = realIP
	}
	if value == "" {
		return nil
	}
	first := strings.TrimSpace(strings.SplitN(value, ",", 2)[0])
	if first == "" {
		return nil
	}
	return &first
}

func (c ClientInfo) userAgent() *string {
	if c.UserAgent == "" {
		return nil
	}
	ua := c.UserAgent
	return &ua
}

func (c ClientInfo) ip() *string {
	return ClientIP(c.ForwardedFor, c.RealIP)
}
