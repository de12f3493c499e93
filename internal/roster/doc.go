// Package roster normalizes account descriptors supplied by the host
// environment into canonical accounts.
//
// Descriptors arrive with loosely-typed billing flags (1/true/y/yes and
// their string forms); that tolerance lives here and nowhere else.
package roster
