// Package qrcode wraps github.com/skip2/go-qrcode with the two shapes the
// platform needs: raw PNG bytes and a data-URI string for enrollment pages.
package qrcode
