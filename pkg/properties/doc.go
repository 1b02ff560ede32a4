/*
Package properties provides typed values that are either a literal or an
expression evaluated against memory.

Constructors classify string arguments the same way for every type:

  - "=text" is expression text, parsed on first use.
  - "\=text" is the literal "=text".
  - StringExpression and ValueExpression treat any other string as a raw
    template, so "Hello ${user.name}" interpolates and a plain string
    evaluates to itself.
  - The remaining types keep a string that parses as a literal of the type
    ("42", "true", an allowed enum value) and treat anything else as a path.

GetValue accepts an expression.Memory, a map[string]any, a struct or nil.
*/
package properties
