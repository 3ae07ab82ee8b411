package dictionary

import "strings"

// testSchemaXML is a small FIX-like dictionary covering session-level
// messages, one repeating group, and one business message, used by
// this package's tests.
const testSchemaXML = `
<fix type="FIX.4.2" major="4" minor="2">
  <fields>
    <field name="BeginString" number="8" type="STRING"/>
    <field name="BodyLength" number="9" type="LENGTH"/>
    <field name="MsgType" number="35" type="STRING"/>
    <field name="MsgSeqNum" number="34" type="SEQNUM"/>
    <field name="SenderCompID" number="49" type="STRING"/>
    <field name="TargetCompID" number="56" type="STRING"/>
    <field name="SendingTime" number="52" type="UTCTIMESTAMP"/>
    <field name="PosDupFlag" number="43" type="BOOLEAN"/>
    <field name="OrigSendingTime" number="122" type="UTCTIMESTAMP"/>
    <field name="CheckSum" number="10" type="STRING"/>
    <field name="EncryptMethod" number="98" type="INT"/>
    <field name="HeartBtInt" number="108" type="INT"/>
    <field name="ResetSeqNumFlag" number="141" type="BOOLEAN"/>
    <field name="TestMessageIndicator" number="464" type="BOOLEAN"/>
    <field name="TestReqID" number="112" type="STRING"/>
    <field name="BeginSeqNo" number="7" type="SEQNUM"/>
    <field name="EndSeqNo" number="16" type="SEQNUM"/>
    <field name="NewSeqNo" number="36" type="SEQNUM"/>
    <field name="GapFillFlag" number="123" type="BOOLEAN"/>
    <field name="RefSeqNum" number="45" type="SEQNUM"/>
    <field name="RefTagID" number="371" type="INT"/>
    <field name="RefMsgType" number="372" type="STRING"/>
    <field name="SessionRejectReason" number="373" type="INT"/>
    <field name="Text" number="58" type="STRING"/>
    <field name="NoPartyIDs" number="453" type="NUMINGROUP"/>
    <field name="PartyID" number="448" type="STRING"/>
    <field name="PartyIDSource" number="447" type="CHAR"/>
    <field name="PartyRole" number="452" type="INT"/>
    <field name="ClOrdID" number="11" type="STRING"/>
    <field name="Symbol" number="55" type="STRING"/>
    <field name="Side" number="54" type="CHAR"/>
    <field name="OrderQty" number="38" type="QTY"/>
    <field name="OrdType" number="40" type="CHAR"/>
    <field name="Price" number="44" type="PRICE"/>
    <field name="TimeInForce" number="59" type="CHAR"/>
    <field name="TransactTime" number="60" type="UTCTIMESTAMP"/>
    <field name="Data" number="90" type="DATA"/>
    <field name="DataLen" number="91" type="LENGTH"/>
  </fields>
  <header>
    <field name="BeginString" required="Y"/>
    <field name="BodyLength" required="Y"/>
    <field name="MsgType" required="Y"/>
    <field name="MsgSeqNum" required="Y"/>
    <field name="SenderCompID" required="Y"/>
    <field name="TargetCompID" required="Y"/>
    <field name="SendingTime" required="Y"/>
    <field name="PosDupFlag" required="N"/>
    <field name="OrigSendingTime" required="N"/>
  </header>
  <trailer>
    <field name="CheckSum" required="Y"/>
  </trailer>
  <messages>
    <message name="Logon" msgtype="A">
      <field name="EncryptMethod" required="Y"/>
      <field name="HeartBtInt" required="Y"/>
      <field name="ResetSeqNumFlag" required="N"/>
      <field name="TestMessageIndicator" required="N"/>
    </message>
    <message name="Heartbeat" msgtype="0">
      <field name="TestReqID" required="N"/>
    </message>
    <message name="TestRequest" msgtype="1">
      <field name="TestReqID" required="Y"/>
    </message>
    <message name="ResendRequest" msgtype="2">
      <field name="BeginSeqNo" required="Y"/>
      <field name="EndSeqNo" required="Y"/>
    </message>
    <message name="Reject" msgtype="3">
      <field name="RefSeqNum" required="Y"/>
      <field name="RefTagID" required="N"/>
      <field name="RefMsgType" required="N"/>
      <field name="SessionRejectReason" required="N"/>
      <field name="Text" required="N"/>
    </message>
    <message name="SequenceReset" msgtype="4">
      <field name="NewSeqNo" required="Y"/>
      <field name="GapFillFlag" required="N"/>
    </message>
    <message name="Logout" msgtype="5">
      <field name="Text" required="N"/>
    </message>
    <message name="NewOrderSingle" msgtype="D">
      <field name="ClOrdID" required="Y"/>
      <field name="Symbol" required="Y"/>
      <field name="Side" required="Y"/>
      <field name="OrderQty" required="Y"/>
      <field name="OrdType" required="Y"/>
      <field name="Price" required="N"/>
      <field name="TimeInForce" required="N"/>
      <field name="TransactTime" required="Y"/>
      <group name="NoPartyIDs" required="N" ordered="Y">
        <field name="PartyID" required="Y"/>
        <field name="PartyIDSource" required="N"/>
        <field name="PartyRole" required="N"/>
      </group>
      <field name="DataLen" required="N"/>
      <field name="Data" required="N"/>
    </message>
  </messages>
</fix>
`

func loadTestDictionary() (*Dictionary, error) {
	return Load(strings.NewReader(testSchemaXML))
}
