// Package model defines shared data types used across the collaboration hub.
package model
