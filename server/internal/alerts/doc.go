// Package alerts evaluates heart-rate threshold rules on every accepted
// reading and delivers webhook notifications.
//
// Rules come from config.AlertsConfig:
//
//	- name: tachycardia
//	  condition: "heart_beat > 180"
//	  severity: critical
//	  cooldown: 5m
//
// A rule fires when its condition first matches and re-fires only after its
// cooldown. It resolves on the first reading that no longer matches. Fire
// and resolve events are delivered asynchronously to every configured
// webhook (slack, teams or plain http). Only currently firing alerts are
// kept in memory; resolved alerts are dropped after delivery.
package alerts
