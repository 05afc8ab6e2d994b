// Package routepath parses raw deep links into a canonical routing path and
// query parameters.
//
// Links arrive from many places (push notifications, QR codes, NFC tags, SMS,
// web pages) and are not always well-formed. Parse accepts strict URIs
// ("waqiti://pay/m1?amount=5", "https://waqiti.com/pay/m1") and falls back to a
// lenient path+query split for anything url.Parse rejects.
//
// Paths returned by Parse are canonical and still percent-escaped; callers
// decode individual segments with DecodeSegment so that an encoded slash can
// never split one segment into two.
package routepath
