package swiftlet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type program struct {
	name string
	src  string
	want []string
}

func runPrograms(t *testing.T, tests []program) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustRun(t, NewScope(), tt.src)
			assert.Equal(t, tt.want, rec.lines())
		})
	}
}

type rejected struct {
	name string
	src  string
	kind ErrorKind
	msg  string
}

func runRejected(t *testing.T, tests []rejected) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, NewScope(), tt.src)
			e := asError(t, err)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Contains(t, e.Msg, tt.msg)
		})
	}
}

func TestOptionalResultsBindWithoutAnnotation(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "dictionary miss",
			src: `print("start")
let ages = ["a": 1]
let b = ages["b"]
print(b ?? 0)
print(b == nil)`,
			want: []string{"start", "0", "true"},
		},
		{
			name: "failable conversion",
			src: `let n = Int("abc")
print(n ?? -1)
let m = Int("42")
print(m ?? -1)`,
			want: []string{"-1", "42"},
		},
		{
			name: "optional returning function",
			src: `func someMethod(isReturnNil: Bool) -> String? {
    return isReturnNil ? nil : "Abracadabra"
}
let value = someMethod(isReturnNil: true)
print(value ?? "Nil returned...")
let other = someMethod(isReturnNil: false)
print(other ?? "Nil returned...")
print(other)`,
			want: []string{"Nil returned...", "Abracadabra", `Optional("Abracadabra")`},
		},
		{
			name: "variable assigned later",
			src: `let ages = ["a": 1]
var found = ages["z"]
found = 7
print(found!)`,
			want: []string{"7"},
		},
		{
			name: "failable struct initializer",
			src: `struct Rectangle {
    let width: Int
    let height: Int
    init?(width: Int, height: Int) {
        if width <= 0 || height <= 0 {
            return nil
        }
        self.width = width
        self.height = height
    }
}
let bad = Rectangle(width: 0, height: 2)
print(bad == nil)
let good = Rectangle(width: 1, height: 2)
print(good!.height)`,
			want: []string{"true", "2"},
		},
	})
}

func TestOptionalResultKeepsScope(t *testing.T) {
	scope := NewScope()
	mustRun(t, scope, "let ages = [\"a\": 1]\nlet b = ages[\"b\"]")

	rec := mustRun(t, scope, "print(b ?? 0)")
	assert.Equal(t, []string{"0"}, rec.lines())
}

func TestStaticMembers(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "self in type method",
			src: `struct Some {
    static let number = 123
    static func typeMethod(_ number: Int) {
        print("Type method received \(number).")
        print("The value of the type property is \(self.number).")
        anotherTypeMethod()
    }
    static func anotherTypeMethod() {
        print("Another type method is executed!")
    }
}
Some.typeMethod(456)`,
			want: []string{
				"Type method received 456.",
				"The value of the type property is 123.",
				"Another type method is executed!",
			},
		},
		{
			name: "self returns a value",
			src: `struct S {
    static let n = 1
    static func f() -> Int {
        return self.n + 1
    }
}
print(S.f())`,
			want: []string{"2"},
		},
		{
			name: "Self in type method",
			src: `struct S {
    static let n = 1
    static func f() -> Int {
        return Self.n + 2
    }
}
print(S.f())`,
			want: []string{"3"},
		},
		{
			name: "Self in instance method",
			src: `struct Temperature {
    static let unit = "C"
    var degrees: Int
    func describe() -> String {
        return "\(degrees)\(Self.unit)"
    }
}
print(Temperature(degrees: 21).describe())`,
			want: []string{"21C"},
		},
		{
			name: "stored and computed type properties",
			src: `struct Counter {
    static let label = "ABC"
    static var count = 123
    static var doubled: Int {
        return 2 * self.count
    }
}
print(Counter.label)
Counter.count = 456
print(Counter.count)
print(Counter.doubled)`,
			want: []string{"ABC", "456", "912"},
		},
	})
}

func TestComputedAndObservedProperties(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "getter and named setter",
			src: `struct Square {
    var side: Double
    var perimeter: Double {
        get {
            return side * 4.0
        }
        set (newPerimeter) {
            side = newPerimeter / 4.0
        }
    }
}
var sq = Square(side: 1.5)
print(sq.perimeter)
sq.perimeter = 10
print(sq.side)`,
			want: []string{"6.0", "2.5"},
		},
		{
			name: "read-only shorthand",
			src: `struct Rect {
    var height: Double
    var width: Double
    var area: Double { height * width }
}
print(Rect(height: 2, width: 3.5).area)`,
			want: []string{"7.0"},
		},
		{
			name: "willSet and didSet",
			src: `struct Some {
    var observed: String = "Afternoon" {
        willSet {
            print("Now is \(observed).")
            print("It will be \(newValue) soon.")
        }
        didSet {
            print("\(oldValue) did change to \(observed).")
        }
    }
}
var something = Some()
something.observed = "Evening"`,
			want: []string{"Now is Afternoon.", "It will be Evening soon.", "Afternoon did change to Evening."},
		},
	})

	runRejected(t, []rejected{
		{
			name: "assign to get-only property",
			src: `struct Rect {
    var height: Double
    var width: Double
    var area: Double { height * width }
}
var r = Rect(height: 1, width: 1)
r.area = 3`,
			kind: CompileError,
			msg:  "'area' is a get-only property",
		},
	})
}

func TestStructInitializersAndMutation(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "custom initializers",
			src: `struct Circle {
    let radius: Double
    let diameter: Double
    init(r: Double) {
        radius = r
        diameter = r * 2
    }
    init() {
        radius = 1.0
        diameter = 2.0
    }
}
print(Circle(r: 2).diameter)
print(Circle().radius)`,
			want: []string{"4.0", "1.0"},
		},
		{
			name: "mutating method",
			src: `struct Stock {
    var previousPrice = 0.0
    var currentPrice: Double
    mutating func update(amount: Double) {
        previousPrice = currentPrice
        currentPrice += amount
    }
}
var apple = Stock(currentPrice: 100.5)
apple.update(amount: 1.5)
print(apple.previousPrice)
print(apple.currentPrice)`,
			want: []string{"100.5", "102.0"},
		},
		{
			name: "default property values",
			src: `struct Rectangle {
    var height = 0
    var width = 0
}
var rect = Rectangle()
rect.height = 20
print(rect)`,
			want: []string{"Rectangle(height: 20, width: 0)"},
		},
	})

	const stock = `struct Stock {
    let companyName: String
    var currentPrice: Double
    mutating func update(amount: Double) {
        currentPrice += amount
    }
}
`
	runRejected(t, []rejected{
		{
			name: "mutating method on let",
			src:  stock + "let google = Stock(companyName: \"Google\", currentPrice: 86.5)\ngoogle.update(amount: 2.0)",
			kind: CompileError,
			msg:  "'google' is a 'let' constant",
		},
		{
			name: "property of let instance",
			src:  stock + "let ms = Stock(companyName: \"MS\", currentPrice: 214.25)\nms.currentPrice = 215.25",
			kind: CompileError,
			msg:  "'ms' is a 'let' constant",
		},
		{
			name: "let property",
			src:  stock + "var apple = Stock(companyName: \"Apple\", currentPrice: 138.88)\napple.companyName = \"Apple Computer\"",
			kind: CompileError,
			msg:  "'companyName' is a 'let' constant",
		},
	})
}

func TestEnums(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "associated values",
			src: `enum Contact {
    case email(String)
    case phone(Int, Int, Int)
}
var contact = Contact.email("hello@example.com")
print(contact)
contact = .phone(90, 1234, 5678)
print(contact)
switch contact {
case .email(let address):
    print("mail \(address)")
case let .phone(area, _, line):
    print("call \(area)-\(line)")
}`,
			want: []string{`email("hello@example.com")`, "phone(90, 1234, 5678)", "call 90-5678"},
		},
		{
			name: "raw values",
			src: `enum BloodType: String {
    case a, b, o, ab
}
print(BloodType.ab.rawValue)
enum Month: Int {
    case january = 1, february, march
}
print(Month.march.rawValue)`,
			want: []string{"ab", "3"},
		},
		{
			name: "init from raw value",
			src: `enum Month: Int {
    case january = 1, february, march
}
if let m = Month(rawValue: 2) {
    print("born in \(m)")
}
let missing = Month(rawValue: 13)
print(missing == nil)`,
			want: []string{"born in february", "true"},
		},
	})
}

func TestProtocolsAndExtensions(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "method requirement",
			src: `protocol Friendly {
    func showSmile()
}
struct Person: Friendly {
    func showSmile() {
        print("smile")
    }
}
let friend = Person()
friend.showSmile()`,
			want: []string{"smile"},
		},
		{
			name: "property requirement",
			src: `protocol Shape {
    var area: Double { get }
}
struct Rectangle: Shape {
    let width, height: Double
    var area: Double {
        return width * height
    }
}
print(Rectangle(width: 2, height: 3).area)`,
			want: []string{"6.0"},
		},
		{
			name: "mutating requirement",
			src: `protocol MediaPlayer {
    mutating func play()
}
struct PortableAudio: MediaPlayer {
    var isPlaying = false
    mutating func play() {
        isPlaying = true
        print("Now playing ...")
    }
}
var player = PortableAudio()
player.play()
print(player.isPlaying)`,
			want: []string{"Now playing ...", "true"},
		},
		{
			name: "computed properties on Int",
			src: `extension Int {
    var isOddNumber: Bool {
        return (self % 2) != 0
    }
    var isPrimeNumber: Bool {
        if self == 1 { return false }
        for i in 2..<self {
            if self % i == 0 {
                return false
            }
        }
        return true
    }
}
let n = 7
print(n.isOddNumber)
print(n.isPrimeNumber)`,
			want: []string{"true", "true"},
		},
		{
			name: "initializers in extension",
			src: `struct Circle {
    var radius = 1.0
}
extension Circle {
    init(diameter: Double) {
        self.init()
        self.radius = diameter / 2
    }
    init(circumference: Double) {
        let diameter = circumference / Double.pi
        self.init(radius: diameter / 2)
    }
}
print(Circle(diameter: 100).radius)
print(Circle(circumference: Double.pi * 2).radius)
print(Circle().radius)`,
			want: []string{"50.0", "1.0", "1.0"},
		},
		{
			name: "nested type and where clauses",
			src: `struct Orange {
    let weight: Double
}
extension Orange {
    enum Grade {
        case extraLarge, large, regular, outOfSpec
    }
    var grade: Grade {
        switch self.weight {
        case let w where w > 180:
            return .extraLarge
        case let w where w > 130:
            return .large
        case let w where w > 80:
            return .regular
        default:
            return .outOfSpec
        }
    }
}
print(Orange(weight: 80).grade)
print(Orange(weight: 80.2).grade)
print(Orange(weight: 200).grade)`,
			want: []string{"outOfSpec", "regular", "extraLarge"},
		},
		{
			name: "conformance added by extension",
			src: `struct Dog {
    let name: String
}
extension Dog: CustomStringConvertible {
    var description: String {
        return "Dog named \(name)"
    }
}
print(Dog(name: "Rex"))`,
			want: []string{"Dog named Rex"},
		},
	})

	runRejected(t, []rejected{
		{
			name: "missing property requirement",
			src: `protocol Named {
    var name: String { get }
}
struct Thing: Named {
    var id: Int
}`,
			kind: CompileError,
			msg:  "type 'Thing' does not conform to protocol 'Named'",
		},
	})
}

func TestFunctions(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "inout parameters",
			src: `func swapTwo(_ a: inout String, _ b: inout String) {
    let tmp = a
    a = b
    b = tmp
}
var mine = "plane"
var yours = "boat"
swapTwo(&mine, &yours)
print(mine, yours)`,
			want: []string{"boat plane"},
		},
		{
			name: "default arguments",
			src: `func greet(_ name: String = "World", punctuation: String = "!") -> String {
    return "Hello, \(name)\(punctuation)"
}
print(greet())
print(greet("Swift"))
print(greet(punctuation: "?"))`,
			want: []string{"Hello, World!", "Hello, Swift!", "Hello, World?"},
		},
		{
			name: "implicit return",
			src: `func area(height: Int, width: Int) -> Int {
    height * width
}
print(area(height: 3, width: 4) + area(height: 5, width: 6))`,
			want: []string{"42"},
		},
		{
			name: "labelled tuple result",
			src: `func minMax(_ numbers: [Int]) -> (min: Int, max: Int) {
    var lo = numbers[0]
    var hi = numbers[0]
    for number in numbers[1..<numbers.count] {
        if number < lo {
            lo = number
        } else if hi < number {
            hi = number
        }
    }
    return (lo, hi)
}
let bounds = minMax([61, 22, 73, 34, 15])
print("min is \(bounds.min), max is \(bounds.max)")`,
			want: []string{"min is 15, max is 73"},
		},
		{
			name: "globals from a function",
			src: `var currentPrice = 123.5
func update(amount: Double) {
    let previousPrice = currentPrice
    currentPrice += amount
    print("Updated from \(previousPrice) to \(currentPrice).")
}
update(amount: 1.5)`,
			want: []string{"Updated from 123.5 to 125.0."},
		},
	})
}

func TestOptionalChaining(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "member through optional",
			src: `struct Person {
    var name: String
}
var someone: Person? = Person(name: "Ann")
print(someone?.name)
print(someone?.name.count ?? 0)
someone = nil
print(someone?.name)
print(someone?.name ?? "nobody")`,
			want: []string{`Optional("Ann")`, "3", "nil", "nobody"},
		},
		{
			name: "binding several optionals",
			src: `let departure: String? = "Tokyo"
let destination: String? = nil
if let departure, let destination {
    print("Depart from \(departure) for \(destination).")
} else {
    print("Determine your departure and destination.")
}`,
			want: []string{"Determine your departure and destination."},
		},
	})
}

func TestControlFlow(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "repeat while",
			src: `var n = 0
repeat {
    n += 2
} while n < 5
print(n)`,
			want: []string{"6"},
		},
		{
			name: "switch ranges and lists",
			src: `func grade(_ score: Int) -> String {
    switch score {
    case 90...100:
        return "A"
    case 80..<90:
        return "B"
    case 0, 1:
        return "tiny"
    default:
        return "C"
    }
}
print(grade(95), grade(85), grade(1), grade(50))`,
			want: []string{"A B tiny C"},
		},
		{
			name: "guard let",
			src: `func check(_ value: Int?) -> String {
    guard let v = value else {
        return "missing"
    }
    return "got \(v)"
}
print(check(3))
print(check(nil))`,
			want: []string{"got 3", "missing"},
		},
		{
			name: "continue",
			src: `var odds: [Int] = []
for i in 1...6 {
    if i % 2 == 0 {
        continue
    }
    odds.append(i)
}
print(odds)`,
			want: []string{"[1, 3, 5]"},
		},
		{
			name: "dictionary destructuring",
			src: `let data = ["Tokyo": 13, "Madrid": 3]
var total = 0
for (city, population) in data {
    total += population
}
print(total)
print(data.keys.sorted())`,
			want: []string{"16", `["Madrid", "Tokyo"]`},
		},
		{
			name: "logical operators and ternary",
			src: `let number = 15
if number.isMultiple(of: 3) && number.isMultiple(of: 5) {
    print("FizzBuzz")
}
let locked = !false && !true
print(locked ? "locked" : "open")`,
			want: []string{"FizzBuzz", "open"},
		},
	})
}

func TestCollectionMembers(t *testing.T) {
	runPrograms(t, []program{
		{
			name: "insert contents of",
			src: `var week = ["Monday"]
week.insert("Sunday", at: 0)
week.insert("Saturday", at: 2)
week.insert(contentsOf: ["Tuesday", "Wednesday", "Thursday", "Friday"], at: 2)
print(week)
print(week.count)`,
			want: []string{`["Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"]`, "7"},
		},
		{
			name: "insert contents of range",
			src: `var xs = [1, 5]
xs.insert(contentsOf: 2...4, at: 1)
print(xs)`,
			want: []string{"[1, 2, 3, 4, 5]"},
		},
		{
			name: "removing elements",
			src: `var list = ["Apple", "Banana", "Cheese", "Egg", "Milk"]
let removed = list.remove(at: 0)
list.removeFirst()
list.removeLast()
print(list)
print("\(removed) is removed.")
print(list.contains("Egg"))`,
			want: []string{`["Cheese", "Egg"]`, "Apple is removed.", "true"},
		},
		{
			name: "dictionary updates",
			src: `var items = ["egg": 4, "banana": 1]
if let old = items.updateValue(2, forKey: "banana") {
    print("was \(old)")
}
items["egg"] = nil
print(items)
print(items.removeValue(forKey: "none") == nil)`,
			want: []string{"was 1", `["banana": 2]`, "true"},
		},
		{
			name: "string members",
			src: `let s = "Swift"
print(s.uppercased(), s.lowercased())
print(s.hasPrefix("Sw"), s.hasSuffix("x"), s.contains("if"))
print(s.isEmpty, s.count)`,
			want: []string{"SWIFT swift", "true false true", "false 5"},
		},
		{
			name: "random in range",
			src: `let r = Int.random(in: 1...3)
print(r >= 1 && r <= 3)`,
			want: []string{"true"},
		},
	})

	runRejected(t, []rejected{
		{
			name: "insert contents of past the end",
			src:  "var xs = [1, 4]\nxs.insert(contentsOf: [2, 3], at: 5)",
			kind: RuntimeError,
			msg:  "Array index is out of range",
		},
		{
			name: "insert past the end",
			src:  "var week = [\"Monday\"]\nweek.insert(\"Wednesday\", at: 4)",
			kind: RuntimeError,
			msg:  "Array index is out of range",
		},
		{
			name: "insert contents of on let",
			src:  "let xs = [1]\nxs.insert(contentsOf: [2], at: 0)",
			kind: CompileError,
			msg:  "'xs' is a 'let' constant",
		},
	})
}

func TestUntypedNilLiteral(t *testing.T) {
	rec, err := run(t, NewScope(), "print(\"start\")\nlet x = nil")
	e := asError(t, err)
	assert.Equal(t, CompileError, e.Kind)
	assert.Equal(t, "'nil' requires a contextual type", e.Msg)
	assert.Empty(t, rec.lines())

	mustRun(t, NewScope(), "var y: Int? = nil\ny = 3")
}
