package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/smithy-go"

	"github.com/picklr-io/relish/internal/meta"
	"github.com/picklr-io/relish/providers/aws"
)

// notFoundErr builds the provider error shape the engine treats as
// "resource does not exist".
func notFoundErr(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "does not exist"}
}

// callLog records provider mutations across fakes in call order, so
// tests can assert kind ordering without caring which fake was hit.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.calls...)
}

// awsFunction builds the description the fake returns for a deployed
// function.
func awsFunction(name string) *aws.FunctionDescription {
	return &aws.FunctionDescription{
		ARN:         "arn:aws:lambda:eu-west-1:123456789012:function:" + name,
		Description: map[string]any{"FunctionName": name},
	}
}

type eventSourceCall struct {
	function      string
	sourceARN     string
	batchSize     int32
	startPosition string
}

type permissionCall struct {
	function  string
	principal string
	sourceARN string
}

type fakeFunctions struct {
	mu  sync.Mutex
	log *callLog

	existing  map[string]*aws.FunctionDescription
	created   []aws.CreateFunctionInput
	createErr error
	deleteErr error

	unreserved    int32
	unreservedErr error
	reserved      map[string]int32

	eventSources   []eventSourceCall
	permissions    []permissionCall
	removedSources []string
}

func (f *fakeFunctions) Get(ctx context.Context, name string) (*aws.FunctionDescription, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.existing[name]
	return d, ok, nil
}

func (f *fakeFunctions) Create(ctx context.Context, in aws.CreateFunctionInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, in)
	f.existing[in.Name] = awsFunction(in.Name)
	f.log.add("function.create %s", in.Name)
	return nil
}

func (f *fakeFunctions) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.existing[name]; !ok {
		return notFoundErr("ResourceNotFoundException")
	}
	delete(f.existing, name)
	f.log.add("function.delete %s", name)
	return nil
}

func (f *fakeFunctions) SetReservedConcurrency(ctx context.Context, name string, executions int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserved[name] = executions
	return nil
}

func (f *fakeFunctions) UnreservedConcurrency(ctx context.Context) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unreserved, f.unreservedErr
}

func (f *fakeFunctions) AddEventSource(ctx context.Context, function, sourceARN string, batchSize int32, startPosition string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventSources = append(f.eventSources, eventSourceCall{
		function:      function,
		sourceARN:     sourceARN,
		batchSize:     batchSize,
		startPosition: startPosition,
	})
	return nil
}

func (f *fakeFunctions) RemoveEventSources(ctx context.Context, function string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedSources = append(f.removedSources, function)
	return nil
}

func (f *fakeFunctions) AddInvocationPermission(ctx context.Context, function, principal, sourceARN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissions = append(f.permissions, permissionCall{
		function:  function,
		principal: principal,
		sourceARN: sourceARN,
	})
	return nil
}

type fakeStreams struct {
	mu  sync.Mutex
	log *callLog

	existing  map[string]*aws.StreamDescription
	created   map[string]int32
	deleteErr error
}

func streamARN(name string) string {
	return "arn:aws:kinesis:eu-west-1:123456789012:stream/" + name
}

func (f *fakeStreams) Get(ctx context.Context, name string) (*aws.StreamDescription, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.existing[name]
	return d, ok, nil
}

func (f *fakeStreams) Create(ctx context.Context, name string, shardCount int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created[name] = shardCount
	f.existing[name] = &aws.StreamDescription{
		ARN:         streamARN(name),
		Status:      aws.StreamStatusActive,
		Description: map[string]any{"StreamName": name},
	}
	f.log.add("stream.create %s", name)
	return nil
}

func (f *fakeStreams) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.existing[name]; !ok {
		return notFoundErr("ResourceNotFoundException")
	}
	delete(f.existing, name)
	f.log.add("stream.delete %s", name)
	return nil
}

type fakeTables struct {
	mu sync.Mutex

	streaming map[string]bool
	enabled   []string
}

func tableStreamARN(name string) string {
	return "arn:aws:dynamodb:eu-west-1:123456789012:table/" + name + "/stream/latest"
}

func (f *fakeTables) StreamEnabled(ctx context.Context, table string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streaming[table], nil
}

func (f *fakeTables) EnableStream(ctx context.Context, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streaming[table] = true
	f.enabled = append(f.enabled, table)
	return nil
}

func (f *fakeTables) StreamARN(ctx context.Context, table string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tableStreamARN(table), nil
}

type fakeQueues struct {
	mu sync.Mutex

	existing map[string]bool
	errs     []error
}

func (f *fakeQueues) URL(ctx context.Context, name, ownerAccountID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", false, err
		}
	}
	if !f.existing[name] {
		return "", false, nil
	}
	return "https://sqs.eu-west-1.amazonaws.com/" + ownerAccountID + "/" + name, true, nil
}

type topicSubscription struct {
	topic       string
	functionARN string
	region      string
}

type fakeTopics struct {
	mu sync.Mutex

	subscribed []topicSubscription
}

func (f *fakeTopics) SubscribeFunction(ctx context.Context, topic, functionARN, region string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, topicSubscription{topic: topic, functionARN: functionARN, region: region})
	return "arn:aws:sns:eu-west-1:123456789012:" + topic, nil
}

type notificationCall struct {
	bucket      string
	functionARN string
	events      []string
}

type fakeBuckets struct {
	mu sync.Mutex

	buckets       map[string]bool
	objects       map[string]bool
	objectChecks  int
	notifications []notificationCall
}

func (f *fakeBuckets) Exists(ctx context.Context, bucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[bucket], nil
}

func (f *fakeBuckets) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objectChecks++
	return f.objects[bucket+"/"+key], nil
}

func (f *fakeBuckets) AddFunctionNotification(ctx context.Context, bucket, functionARN string, events []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, notificationCall{bucket: bucket, functionARN: functionARN, events: events})
	return nil
}

type fakeRules struct {
	mu  sync.Mutex
	log *callLog

	existing  map[string]*aws.RuleDescription
	put       map[string]string
	targets   []string
	deleteErr error
}

func ruleARN(name string) string {
	return "arn:aws:events:eu-west-1:123456789012:rule/" + name
}

func (f *fakeRules) Get(ctx context.Context, name string) (*aws.RuleDescription, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.existing[name]
	return d, ok, nil
}

func (f *fakeRules) Put(ctx context.Context, name, scheduleExpression string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put[name] = scheduleExpression
	f.existing[name] = &aws.RuleDescription{
		ARN:         ruleARN(name),
		Description: map[string]any{"Name": name},
	}
	f.log.add("rule.put %s", name)
	return nil
}

func (f *fakeRules) AddFunctionTarget(ctx context.Context, rule, functionARN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, rule+" -> "+functionARN)
	return nil
}

func (f *fakeRules) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.existing[name]; !ok {
		return notFoundErr("ResourceNotFoundException")
	}
	delete(f.existing, name)
	f.log.add("rule.delete %s", name)
	return nil
}

type policyCall struct {
	role string
	name string
	doc  aws.PolicyDocument
}

type fakeRoles struct {
	mu sync.Mutex

	arns     map[string]string
	policies []policyCall
}

func (f *fakeRoles) RoleARN(ctx context.Context, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	arn, ok := f.arns[name]
	return arn, ok, nil
}

func (f *fakeRoles) AttachInlinePolicy(ctx context.Context, role, policyName string, doc aws.PolicyDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies = append(f.policies, policyCall{role: role, name: policyName, doc: doc})
	return nil
}

type fakeLogs struct {
	mu sync.Mutex

	groups  []string
	deleted []string
}

func (f *fakeLogs) LogGroupNames(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.groups...), nil
}

func (f *fakeLogs) DeleteLogGroup(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeRestApis struct {
	mu  sync.Mutex
	log *callLog

	nextID       int
	apis         map[string]string
	resources    []string
	methods      []string
	integrations []string
	responses    []string
	deployed     []string
	deleteErr    error
}

func (f *fakeRestApis) Create(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("api-%d", f.nextID)
	f.apis[id] = name
	f.log.add("api.create %s", name)
	return id, nil
}

func (f *fakeRestApis) Get(ctx context.Context, id string) (*aws.RestApiDescription, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.apis[id]
	if !ok {
		return nil, false, nil
	}
	return &aws.RestApiDescription{ID: id, Description: map[string]any{"Id": id, "Name": name}}, true, nil
}

func (f *fakeRestApis) RootResourceID(ctx context.Context, apiID string) (string, error) {
	return "root-" + apiID, nil
}

func (f *fakeRestApis) CreateResource(ctx context.Context, apiID, parentID, pathPart string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("res-%s-%s", parentID, pathPart)
	f.resources = append(f.resources, fmt.Sprintf("%s under %s", pathPart, parentID))
	return id, nil
}

func (f *fakeRestApis) PutMethod(ctx context.Context, apiID, resourceID, httpMethod, authorizationType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, httpMethod+" "+resourceID)
	return nil
}

func (f *fakeRestApis) PutLambdaIntegration(ctx context.Context, apiID, resourceID, httpMethod, functionARN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrations = append(f.integrations, fmt.Sprintf("lambda %s %s %s", httpMethod, resourceID, functionARN))
	return nil
}

func (f *fakeRestApis) PutMockIntegration(ctx context.Context, apiID, resourceID, httpMethod string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrations = append(f.integrations, fmt.Sprintf("mock %s %s", httpMethod, resourceID))
	return nil
}

func (f *fakeRestApis) PutMethodResponse(ctx context.Context, apiID, resourceID, httpMethod, statusCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fmt.Sprintf("%s %s %s", httpMethod, resourceID, statusCode))
	return nil
}

func (f *fakeRestApis) Deploy(ctx context.Context, apiID, stage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deployed = append(f.deployed, apiID+" "+stage)
	return nil
}

func (f *fakeRestApis) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.apis[id]; !ok {
		return notFoundErr("NotFoundException")
	}
	delete(f.apis, id)
	f.log.add("api.delete %s", id)
	return nil
}

// fakes bundles one fake per client interface, all sharing a call log.
type fakes struct {
	log       *callLog
	functions *fakeFunctions
	streams   *fakeStreams
	tables    *fakeTables
	queues    *fakeQueues
	topics    *fakeTopics
	buckets   *fakeBuckets
	rules     *fakeRules
	roles     *fakeRoles
	logs      *fakeLogs
	apis      *fakeRestApis
}

func newFakes() *fakes {
	log := &callLog{}
	return &fakes{
		log: log,
		functions: &fakeFunctions{
			log:        log,
			existing:   map[string]*aws.FunctionDescription{},
			reserved:   map[string]int32{},
			unreserved: 1000,
		},
		streams: &fakeStreams{
			log:      log,
			existing: map[string]*aws.StreamDescription{},
			created:  map[string]int32{},
		},
		tables: &fakeTables{streaming: map[string]bool{}},
		queues: &fakeQueues{existing: map[string]bool{}},
		topics: &fakeTopics{},
		buckets: &fakeBuckets{
			buckets: map[string]bool{"deploy-bucket": true},
			objects: map[string]bool{},
		},
		rules: &fakeRules{
			log:      log,
			existing: map[string]*aws.RuleDescription{},
			put:      map[string]string{},
		},
		roles: &fakeRoles{arns: map[string]string{}},
		logs:  &fakeLogs{},
		apis:  &fakeRestApis{log: log, apis: map[string]string{}},
	}
}

func (f *fakes) clients() Clients {
	return Clients{
		Functions: f.functions,
		Streams:   f.streams,
		Tables:    f.tables,
		Queues:    f.queues,
		Topics:    f.topics,
		Buckets:   f.buckets,
		Rules:     f.rules,
		Roles:     f.roles,
		Logs:      f.logs,
		RestApis:  f.apis,
	}
}

// newTestEngine builds an engine over the fakes with zero settle waits
// and a single-attempt retry policy, so tests run instantly.
func newTestEngine(f *fakes) *Engine {
	return New(f.clients(), Config{
		Region:       "eu-west-1",
		AccountID:    "123456789012",
		DeployBucket: "deploy-bucket",
		Waits:        Waits{},
		Retry: &RetryPolicy{
			MaxRetries: 0,
			BaseDelay:  time.Millisecond,
			MaxDelay:   time.Millisecond,
		},
	})
}

// functionMeta returns a minimal valid function declaration; tests
// override fields as needed.
func functionMeta() meta.Params {
	return meta.Params{
		"resource_type": "lambda",
		"iam_role_name": "app-role",
		"runtime":       "python3.8",
		"memory":        float64(128),
		"timeout":       float64(100),
		"func_name":     "handler.lambda_handler",
		"s3_path":       "lambdas/app.zip",
	}
}

func functionDescriptor(name string) meta.ResourceDescriptor {
	return meta.ResourceDescriptor{Name: name, Kind: meta.KindLambda, Meta: functionMeta()}
}

// grantFunctionPrereqs makes the artifact and the execution role of
// functionMeta resolvable.
func grantFunctionPrereqs(f *fakes) {
	f.buckets.objects["deploy-bucket/lambdas/app.zip"] = true
	f.roles.arns["app-role"] = "arn:aws:iam::123456789012:role/app-role"
}
