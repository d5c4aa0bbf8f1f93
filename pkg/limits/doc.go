// Package limits is the plan gate: it resolves an organization's
// subscription tier to a static table of resource ceilings and checks
// current usage against them before creations. A ceiling of Unlimited (-1)
// never rejects. Usage counting is delegated to CounterFuncs registered by
// the owning CRUD layer.
package limits
