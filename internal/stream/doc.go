// Package stream connects the request dispatcher to live SSE consumers.
//
// Each session key owns at most one subscriber. Delivery is best effort by
// design: the request path never blocks on a slow or absent reader, and a
// reader that falls behind is simply disconnected and may resubscribe.
package stream
