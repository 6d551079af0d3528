package schema

// TestCaseInfo describes one test method found by the inventory scan.
type TestCaseInfo struct {
	ClassName  string `json:"class_name"`
	MethodName string `json:"method_name"`
	Ignored    bool   `json:"ignored"`
}

// ProjectInventory summarizes the tests of one project.
type ProjectInventory struct {
	ProjectName       string         `json:"project_name"`
	TotalClasses      int            `json:"total_classes"`
	TotalCases        int            `json:"total_cases"`
	TotalIgnored      int            `json:"total_ignored"`
	IgnoredPercentage float64        `json:"ignored_percentage"`
	TestCases         []TestCaseInfo `json:"test_cases"`
	IgnoredTests      []TestCaseInfo `json:"ignored_tests"`
}
