package matchmaking

import "strings"

// Compatible reports whether a and b accept each other's profile under their
// own filters. The result is symmetric.
func Compatible(a, b User) bool {
	return accepts(a.Filter, b.Profile) && accepts(b.Filter, a.Profile)
}

// accepts treats unset profile fields as their literal value: an empty city
// only passes an "any" city preference and age 0 only a range including 0.
func accepts(f Filter, p Profile) bool {
	if f.Gender != Any && f.Gender != p.Gender {
		return false
	}
	if p.Age < f.MinAge || p.Age > f.MaxAge {
		return false
	}
	if f.City != Any && !strings.EqualFold(f.City, p.City) {
		return false
	}
	return true
}

// Escalate widens f: max age is raised by step up to ceiling, gender and city
// become Any. A max age already above ceiling is kept, so the result is never
// narrower than f.
func Escalate(f Filter, step, ceiling int) Filter {
	widened := f.MaxAge + step
	if widened > ceiling {
		widened = ceiling
	}
	if widened > f.MaxAge {
		f.MaxAge = widened
	}
	f.Gender = Any
	f.City = Any
	return f
}
