// Package git inspects the local checkout a publish run starts from.
package git
