/*
Package settings builds the read-only configuration that backs the
"settings" scope.

Settings come from YAML or JSON files, environment variables and explicit
values, merged in that order. Flat keys use ':' (or '__' in environment
variables) as the separator, so

	db:hosts:0=a
	db:hosts:1=b
	db:name=main

becomes {"db": {"hosts": ["a", "b"], "name": "main"}}. A key whose
children are all non-negative integers becomes an array.

Entries on BlockingList (credentials and connection strings) are removed
from the result so expressions can never read them.
*/
package settings
