// Package security composes the trust and access subsystems behind one
// facade: two-factor enrollment and verification, API key lifecycle and
// authentication, the tenant audit trail, and plan ceilings. Transport
// layers resolve an Actor from the request and hand it to every call;
// tenancy is never inferred from request bodies.
package security
