// Package scheduler drives periodic full syncs on a cron schedule.
//
// The scheduler itself knows nothing about accounts or providers; it triggers
// an opaque Job on every tick. The sync feature supplies a job that fans out
// one sync task per configured account.
package scheduler
