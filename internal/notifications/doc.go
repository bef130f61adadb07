// Package notifications sends push notifications about sync runs via
// ntfy. When no topic is configured all notifications are no-ops.
package notifications
