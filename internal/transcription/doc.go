// Package transcription provides the HTTP client for the remote
// speech-to-text inference endpoint. Requests are synchronous
// request/response multipart uploads; failed segments are reported to the
// caller and never retried here.
package transcription
